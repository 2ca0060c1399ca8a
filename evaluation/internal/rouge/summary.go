// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rouge

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	sentencesdata "github.com/neurosnap/sentences/data"
)

var (
	sentenceTokenizerOnce sync.Once
	sentenceTokenizer     *sentences.DefaultSentenceTokenizer
	sentenceTokenizerErr  error
)

// splitSentences splits English text into sentences with the Punkt model,
// matching NLTK's sent_tokenize used by google-research/rouge.
func splitSentences(text string) ([]string, error) {
	sentenceTokenizerOnce.Do(func() {
		b, err := sentencesdata.Asset("data/english.json")
		if err != nil {
			sentenceTokenizerErr = fmt.Errorf("load english punkt data: %w", err)
			return
		}
		training, err := sentences.LoadTraining(b)
		if err != nil {
			sentenceTokenizerErr = fmt.Errorf("parse english punkt data: %w", err)
			return
		}
		sentenceTokenizer = sentences.NewSentenceTokenizer(training)
	})
	if sentenceTokenizerErr != nil {
		return nil, sentenceTokenizerErr
	}

	raw := sentenceTokenizer.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, sent := range raw {
		if s := strings.TrimSpace(sent.Text); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// scoreSummaryLCS computes rougeLsum via summary-level LCS aggregation,
// preventing double-counting of matched tokens.
func (s *Scorer) scoreSummaryLCS(target, prediction string) (Score, error) {
	targetSents, err := splitSentences(target)
	if err != nil {
		return Score{}, err
	}
	predSents, err := splitSentences(prediction)
	if err != nil {
		return Score{}, err
	}

	refTokens := make([][]string, 0, len(targetSents))
	for _, sent := range targetSents {
		refTokens = append(refTokens, s.tokenizer.Tokenize(sent))
	}
	canTokens := make([][]string, 0, len(predSents))
	for _, sent := range predSents {
		canTokens = append(canTokens, s.tokenizer.Tokenize(sent))
	}
	return summaryLevelLCS(refTokens, canTokens), nil
}

func summaryLevelLCS(refSents, canSents [][]string) Score {
	var m, n int
	for _, s := range refSents {
		m += len(s)
	}
	for _, s := range canSents {
		n += len(s)
	}
	if m == 0 || n == 0 {
		return Score{}
	}

	refCounts := make(map[string]int)
	canCounts := make(map[string]int)
	for _, s := range refSents {
		for _, tok := range s {
			refCounts[tok]++
		}
	}
	for _, s := range canSents {
		for _, tok := range s {
			canCounts[tok]++
		}
	}

	hits := 0
	for _, ref := range refSents {
		for _, tok := range unionLCS(ref, canSents) {
			if refCounts[tok] <= 0 || canCounts[tok] <= 0 {
				continue
			}
			hits++
			refCounts[tok]--
			canCounts[tok]--
		}
	}

	recall := float64(hits) / float64(m)
	precision := float64(hits) / float64(n)
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// unionLCS returns the reference tokens matched by any candidate sentence's
// LCS with the reference sentence.
func unionLCS(ref []string, cans [][]string) []string {
	seen := make(map[int]struct{})
	for _, can := range cans {
		for _, idx := range lcsIndices(ref, can) {
			seen[idx] = struct{}{}
		}
	}
	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		out = append(out, ref[idx])
	}
	return out
}
