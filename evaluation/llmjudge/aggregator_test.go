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

	"github.com/evalkit/evalkit/evaluation"
)

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []Verdict
		want     *float64
	}{
		{
			name:     "valid majority",
			verdicts: []Verdict{VerdictValid, VerdictValid, VerdictInvalid, VerdictValid, VerdictInvalid},
			want:     evaluation.Float(1.0),
		},
		{
			name:     "invalid majority",
			verdicts: []Verdict{VerdictInvalid, VerdictInvalid, VerdictValid},
			want:     evaluation.Float(0.0),
		},
		{
			name:     "tie resolves to invalid",
			verdicts: []Verdict{VerdictValid, VerdictInvalid},
			want:     evaluation.Float(0.0),
		},
		{
			name:     "not evaluated samples dropped",
			verdicts: []Verdict{VerdictNotEvaluated, VerdictValid, VerdictNotEvaluated},
			want:     evaluation.Float(1.0),
		},
		{
			name:     "no usable samples",
			verdicts: []Verdict{VerdictNotEvaluated, VerdictNotEvaluated},
			want:     nil,
		},
		{
			name:     "empty",
			verdicts: nil,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MajorityVote(tt.verdicts)
			if !floatPtrEqual(got, tt.want) {
				t.Errorf("MajorityVote() = %v, want %v", fmtPtr(got), fmtPtr(tt.want))
			}
		})
	}
}

func TestMeanScore(t *testing.T) {
	if got := MeanScore(nil); got != nil {
		t.Errorf("MeanScore(nil) = %v, want nil", *got)
	}
	if got := MeanScore([]*float64{nil, nil}); got != nil {
		t.Errorf("MeanScore(all nil) = %v, want nil", *got)
	}
	got := MeanScore([]*float64{evaluation.Float(1.0), nil, evaluation.Float(0.5)})
	if got == nil || *got != 0.75 {
		t.Errorf("MeanScore() = %v, want 0.75", fmtPtr(got))
	}
}

func TestFractionPassing(t *testing.T) {
	// 0.5 is evaluated but not passing, so 1 of 3 evaluated pass.
	got := FractionPassing([]*float64{evaluation.Float(1.0), evaluation.Float(0.5), evaluation.Float(0.0), nil})
	if got == nil || *got != 1.0/3.0 {
		t.Errorf("FractionPassing() = %v, want 1/3", fmtPtr(got))
	}
	if got := FractionPassing([]*float64{nil}); got != nil {
		t.Errorf("FractionPassing(all nil) = %v, want nil", *got)
	}
}

func TestAggregateRubricSamples(t *testing.T) {
	samples := [][]evaluation.RubricScore{
		{
			{RubricID: "polite", Score: evaluation.Float(1.0), Rationale: "greets"},
			{RubricID: "cites", Score: evaluation.Float(0.0), Rationale: "no source"},
		},
		{
			{RubricID: "polite", Score: evaluation.Float(1.0), Rationale: "thanks user"},
			{RubricID: "cites", Score: evaluation.Float(1.0), Rationale: "links docs"},
		},
		{
			{RubricID: "polite", Score: evaluation.Float(0.0), Rationale: "curt"},
		},
	}

	got := AggregateRubricSamples([]string{"polite", "cites", "french"}, samples)
	if len(got) != 3 {
		t.Fatalf("AggregateRubricSamples() returned %d scores, want 3", len(got))
	}

	// polite: 2 yes vs 1 no.
	if got[0].Score == nil || *got[0].Score != 1.0 {
		t.Errorf("polite score = %v, want 1.0", fmtPtr(got[0].Score))
	}
	if got[0].Rationale != "greets" {
		t.Errorf("polite rationale = %q, want first winning sample's", got[0].Rationale)
	}
	// cites: 1 yes vs 1 no, tie resolves negative.
	if got[1].Score == nil || *got[1].Score != 0.0 {
		t.Errorf("cites score = %v, want 0.0 on tie", fmtPtr(got[1].Score))
	}
	// french: no sample mentioned it.
	if got[2].RubricID != "french" || got[2].Score != nil {
		t.Errorf("french score = %+v, want scoreless entry", got[2])
	}
}

func TestAggregateRubricsAcrossInvocations(t *testing.T) {
	perInvocation := [][]evaluation.RubricScore{
		{{RubricID: "polite", Score: evaluation.Float(1.0)}},
		{{RubricID: "polite", Score: evaluation.Float(0.0)}},
		{{RubricID: "polite"}},
	}
	got := AggregateRubricsAcrossInvocations([]string{"polite"}, perInvocation)
	if len(got) != 1 {
		t.Fatalf("AggregateRubricsAcrossInvocations() returned %d scores, want 1", len(got))
	}
	if got[0].Score == nil || *got[0].Score != 0.5 {
		t.Errorf("overall polite score = %v, want 0.5", fmtPtr(got[0].Score))
	}
}

func TestMatchRubricIDs(t *testing.T) {
	rubrics := []evaluation.Rubric{
		{ID: "polite", Content: evaluation.RubricContent{TextProperty: "The response is polite."}},
	}
	verdicts := []RubricVerdict{
		{Property: "the response is polite.", Score: evaluation.Float(1.0), Rationale: "greets"},
		{Property: "an unknown property", Score: evaluation.Float(0.0)},
	}
	got := MatchRubricIDs(verdicts, rubrics)
	if len(got) != 1 {
		t.Fatalf("MatchRubricIDs() returned %d scores, want 1", len(got))
	}
	if got[0].RubricID != "polite" || got[0].Score == nil || *got[0].Score != 1.0 {
		t.Errorf("matched score = %+v", got[0])
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtPtr(f *float64) any {
	if f == nil {
		return "<nil>"
	}
	return *f
}
