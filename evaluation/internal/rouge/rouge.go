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

// Package rouge implements ROUGE scoring for text evaluation, following
// google-research/rouge: ROUGE-N over token n-grams, ROUGE-L over the
// longest common subsequence, and ROUGE-Lsum over summary-level LCS.
package rouge

import (
	"fmt"
	"strconv"
	"strings"
)

// Score holds ROUGE precision, recall, and F-measure, each in [0, 1].
type Score struct {
	Precision float64
	Recall    float64
	FMeasure  float64
}

func fMeasure(precision, recall float64) float64 {
	if precision+recall > 0 {
		return 2 * precision * recall / (precision + recall)
	}
	return 0
}

// Scorer computes ROUGE scores of the configured types.
type Scorer struct {
	rougeTypes []string
	tokenizer  *tokenizer
}

// NewScorer creates a scorer for the given ROUGE types ("rouge1", "rouge2",
// ..., "rougeL", "rougeLsum"), optionally with Porter stemming.
func NewScorer(rougeTypes []string, useStemmer bool) (*Scorer, error) {
	for _, t := range rougeTypes {
		if err := validateRougeType(t); err != nil {
			return nil, err
		}
	}
	return &Scorer{
		rougeTypes: append([]string(nil), rougeTypes...),
		tokenizer:  newTokenizer(useStemmer),
	}, nil
}

func validateRougeType(rougeType string) error {
	if rougeType == "rougeL" || rougeType == "rougeLsum" {
		return nil
	}
	_, err := parseRougeN(rougeType)
	return err
}

func parseRougeN(rougeType string) (int, error) {
	nStr := strings.TrimPrefix(rougeType, "rouge")
	if nStr == rougeType || nStr == "" {
		return 0, fmt.Errorf("invalid rouge type: %s", rougeType)
	}
	n, err := strconv.Atoi(nStr)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid rouge type: %s", rougeType)
	}
	return n, nil
}

// Score computes the configured ROUGE scores for one target/prediction pair.
func (s *Scorer) Score(target, prediction string) (map[string]Score, error) {
	targetTokens := s.tokenizer.Tokenize(target)
	predTokens := s.tokenizer.Tokenize(prediction)

	result := make(map[string]Score, len(s.rougeTypes))
	for _, rougeType := range s.rougeTypes {
		switch rougeType {
		case "rougeL":
			result[rougeType] = scoreLCS(targetTokens, predTokens)
		case "rougeLsum":
			score, err := s.scoreSummaryLCS(target, prediction)
			if err != nil {
				return nil, err
			}
			result[rougeType] = score
		default:
			n, err := parseRougeN(rougeType)
			if err != nil {
				return nil, err
			}
			result[rougeType] = scoreNGrams(targetTokens, predTokens, n)
		}
	}
	return result, nil
}

// scoreNGrams computes ROUGE-N from the n-gram multiset intersection.
func scoreNGrams(targetTokens, predTokens []string, n int) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	targetNGrams := createNGrams(targetTokens, n)
	predNGrams := createNGrams(predTokens, n)

	var intersection, targetCount, predCount int
	for key, cnt := range targetNGrams {
		targetCount += cnt
		if predCnt, ok := predNGrams[key]; ok {
			intersection += min(cnt, predCnt)
		}
	}
	for _, cnt := range predNGrams {
		predCount += cnt
	}

	precision := float64(intersection) / float64(max(predCount, 1))
	recall := float64(intersection) / float64(max(targetCount, 1))
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// createNGrams builds a multiset of n-grams keyed by the joined tokens.
func createNGrams(tokens []string, n int) map[string]int {
	if n <= 0 || len(tokens) < n {
		return map[string]int{}
	}
	ngrams := make(map[string]int, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		ngrams[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return ngrams
}

// scoreLCS computes ROUGE-L from the longest common subsequence length.
func scoreLCS(targetTokens, predTokens []string) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	lcsLen := lcsLength(targetTokens, predTokens)
	precision := float64(lcsLen) / float64(len(predTokens))
	recall := float64(lcsLen) / float64(len(targetTokens))
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

func lcsLength(ref, can []string) int {
	table := lcsTable(ref, can)
	return table[len(ref)][len(can)]
}

func lcsTable(ref, can []string) [][]int {
	table := make([][]int, len(ref)+1)
	for i := range table {
		table[i] = make([]int, len(can)+1)
	}
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(can); j++ {
			if ref[i-1] == can[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}
	return table
}

// lcsIndices returns the ref-side indices of one LCS between ref and can.
func lcsIndices(ref, can []string) []int {
	table := lcsTable(ref, can)
	var indices []int
	for i, j := len(ref), len(can); i > 0 && j > 0; {
		switch {
		case ref[i-1] == can[j-1]:
			indices = append(indices, i-1)
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(indices)-1; l < r; l, r = l+1, r-1 {
		indices[l], indices[r] = indices[r], indices[l]
	}
	return indices
}
