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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseValidityVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Verdict
	}{
		{
			name:     "json list valid",
			response: `{"is_the_agent_response_valid": ["valid"]}`,
			want:     VerdictValid,
		},
		{
			name:     "bare field invalid",
			response: "is_the_agent_response_valid: invalid",
			want:     VerdictInvalid,
		},
		{
			name:     "partially valid counts as invalid",
			response: `"is_the_agent_response_valid": ["partially valid"]`,
			want:     VerdictInvalid,
		},
		{
			name:     "almost counts as invalid",
			response: "is_the_agent_response_valid: almost",
			want:     VerdictInvalid,
		},
		{
			name:     "inverted field false means valid",
			response: `"is_the_agent_response_invalid": false`,
			want:     VerdictValid,
		},
		{
			name:     "inverted field true means invalid",
			response: "is_the_agent_response_invalid: true",
			want:     VerdictInvalid,
		},
		{
			name:     "no field",
			response: "The response looks fine to me.",
			want:     VerdictNotEvaluated,
		},
		{
			name:     "unknown label",
			response: "is_the_agent_response_valid: excellent",
			want:     VerdictNotEvaluated,
		},
		{
			name:     "surrounded by prose",
			response: "Reasoning: close enough.\n\"is_the_agent_response_valid\": [\"valid\"]\nDone.",
			want:     VerdictValid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseValidityVerdict(tt.response); got != tt.want {
				t.Errorf("ParseValidityVerdict(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestParseRubricVerdicts(t *testing.T) {
	response := `Property: The response is polite.
Rationale: The agent greets the user.
Verdict: yes

Property: The response cites a source.
Rationale: No citation is present.
Verdict: no

Property: The response is in French.
Rationale: Cannot tell.
Verdict: unsure
`
	got := ParseRubricVerdicts(response)
	if len(got) != 3 {
		t.Fatalf("ParseRubricVerdicts() returned %d verdicts, want 3", len(got))
	}

	if got[0].Property != "the response is polite." {
		t.Errorf("verdict 0 property = %q", got[0].Property)
	}
	if got[0].Score == nil || *got[0].Score != 1.0 {
		t.Errorf("verdict 0 score = %v, want 1.0", got[0].Score)
	}
	if got[1].Score == nil || *got[1].Score != 0.0 {
		t.Errorf("verdict 1 score = %v, want 0.0", got[1].Score)
	}
	if got[2].Score != nil {
		t.Errorf("verdict 2 score = %v, want nil for unparseable verdict", got[2].Score)
	}
	if got[1].Rationale != "No citation is present." {
		t.Errorf("verdict 1 rationale = %q", got[1].Rationale)
	}
}

func TestParseSentences(t *testing.T) {
	response := `<sentence>Paris is in France.</sentence>
some filler
<sentence> The Seine flows through it. </sentence>
<sentence></sentence>`
	want := []string{"Paris is in France.", "The Seine flows through it."}
	if diff := cmp.Diff(want, ParseSentences(response)); diff != "" {
		t.Errorf("ParseSentences() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSentenceLabels(t *testing.T) {
	response := `sentence: Paris is in France.
label: supported
rationale: stated in the context.

sentence: The tower is 400m tall.
label: **contradictory**
rationale: the context says 330m.

sentence: Thanks for asking!
label: not_applicable
rationale: not a factual claim.
`
	want := []SentenceLabel{LabelSupported, LabelContradictory, LabelNotApplicable}
	if diff := cmp.Diff(want, ParseSentenceLabels(response)); diff != "" {
		t.Errorf("ParseSentenceLabels() mismatch (-want +got):\n%s", diff)
	}
}

func TestSentenceLabelScore(t *testing.T) {
	tests := []struct {
		label SentenceLabel
		want  float64
	}{
		{LabelSupported, 1.0},
		{LabelNotApplicable, 1.0},
		{LabelUnsupported, 0.0},
		{LabelContradictory, 0.0},
		{LabelDisputed, 0.0},
	}
	for _, tt := range tests {
		if got := tt.label.Score(); got != tt.want {
			t.Errorf("%s.Score() = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestParseScoreField(t *testing.T) {
	tests := []struct {
		response string
		want     float64
		ok       bool
	}{
		{"score: 4", 4, true},
		{"Score: 3.5", 3.5, true},
		{"score: **5**", 5, true},
		{"no score here", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseScoreField(tt.response)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseScoreField(%q) = (%v, %v), want (%v, %v)", tt.response, got, ok, tt.want, tt.ok)
		}
	}
}
