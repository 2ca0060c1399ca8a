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

package llmjudge

import (
	"regexp"
	"strconv"
	"strings"
)

// Verdict is the parsed outcome of one judge sample.
type Verdict int

const (
	// VerdictNotEvaluated means the sample carried no usable verdict.
	VerdictNotEvaluated Verdict = iota
	VerdictValid
	VerdictInvalid
)

var (
	// validityFieldRE matches the labelled validity field the rater prompt
	// asks for, in raw or JSON-quoted form, e.g.
	//   "is_the_agent_response_valid": ["valid"]
	//   is_the_agent_response_invalid: false
	validityFieldRE = regexp.MustCompile(
		`(?i)"?is_the_agent_response_(valid|invalid)"?\s*:\s*\[?\s*"?([a-z ]+)"?`)

	// rubricBlockRE matches one Property/Rationale/Verdict answer block.
	rubricBlockRE = regexp.MustCompile(
		`(?is)property\s*:\s*(.*?)\n\s*rationale\s*:\s*(.*?)\n\s*verdict\s*:\s*([a-z]+)`)

	// sentenceSpanRE extracts segmenter output sentences.
	sentenceSpanRE = regexp.MustCompile(`(?s)<sentence>(.*?)</sentence>`)

	// sentenceLabelRE matches one validator line, e.g. "label: supported".
	sentenceLabelRE = regexp.MustCompile(
		`(?i)label\s*:\s*\*{0,2}(supported|unsupported|contradictory|disputed|not_applicable)\*{0,2}`)

	// scoreFieldRE matches a numeric score field, e.g. "score: 4".
	scoreFieldRE = regexp.MustCompile(`(?i)score\s*:\s*\*{0,2}([0-9]+(?:\.[0-9]+)?)`)
)

// invalidSynonyms are the near-synonym labels coerced to INVALID. Labels
// outside this set and outside "valid" yield no verdict.
var invalidSynonyms = map[string]bool{
	"invalid":         true,
	"partially valid": true,
	"partially":       true,
	"almost":          true,
	"false":           true,
}

// ParseValidityVerdict extracts the response-validity verdict from one
// judge sample.
func ParseValidityVerdict(response string) Verdict {
	m := validityFieldRE.FindStringSubmatch(response)
	if m == nil {
		return VerdictNotEvaluated
	}
	field := strings.ToLower(m[1])
	value := strings.TrimSpace(strings.ToLower(m[2]))

	if field == "invalid" {
		// The inverted field: "false" means the response was not invalid.
		switch value {
		case "false", "no":
			return VerdictValid
		case "true", "yes", "invalid":
			return VerdictInvalid
		default:
			return VerdictNotEvaluated
		}
	}

	if value == "valid" || value == "true" || value == "yes" {
		return VerdictValid
	}
	if invalidSynonyms[value] {
		return VerdictInvalid
	}
	return VerdictNotEvaluated
}

// RubricVerdict is one parsed Property/Rationale/Verdict block.
type RubricVerdict struct {
	// Property is the rubric text echoed by the judge, normalised to
	// lowercase with surrounding space trimmed.
	Property  string
	Rationale string
	// Score is 1 for "yes", 0 for "no", nil otherwise.
	Score *float64
}

// ParseRubricVerdicts extracts every rubric answer block from one judge
// sample.
func ParseRubricVerdicts(response string) []RubricVerdict {
	matches := rubricBlockRE.FindAllStringSubmatch(response, -1)
	verdicts := make([]RubricVerdict, 0, len(matches))
	for _, m := range matches {
		v := RubricVerdict{
			Property:  NormalizeProperty(m[1]),
			Rationale: strings.TrimSpace(m[2]),
		}
		switch strings.ToLower(strings.TrimSpace(m[3])) {
		case "yes":
			score := 1.0
			v.Score = &score
		case "no":
			score := 0.0
			v.Score = &score
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// NormalizeProperty lowercases and trims rubric property text for lookup.
func NormalizeProperty(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

// ParseSentences extracts the segmenter's <sentence> spans.
func ParseSentences(response string) []string {
	matches := sentenceSpanRE.FindAllStringSubmatch(response, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m[1]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceLabel is one validator label for a sentence.
type SentenceLabel string

const (
	LabelSupported     SentenceLabel = "supported"
	LabelUnsupported   SentenceLabel = "unsupported"
	LabelContradictory SentenceLabel = "contradictory"
	LabelDisputed      SentenceLabel = "disputed"
	LabelNotApplicable SentenceLabel = "not_applicable"
)

// Score maps the label to its binary grounding score: supported and
// not_applicable count as grounded.
func (l SentenceLabel) Score() float64 {
	if l == LabelSupported || l == LabelNotApplicable {
		return 1.0
	}
	return 0.0
}

// ParseSentenceLabels extracts the validator's per-sentence labels in
// order.
func ParseSentenceLabels(response string) []SentenceLabel {
	matches := sentenceLabelRE.FindAllStringSubmatch(response, -1)
	labels := make([]SentenceLabel, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, SentenceLabel(strings.ToLower(m[1])))
	}
	return labels
}

// ParseScoreField extracts a numeric "score:" field from one judge sample.
func ParseScoreField(response string) (float64, bool) {
	m := scoreFieldRE.FindStringSubmatch(response)
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}
