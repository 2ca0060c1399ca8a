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

package evaluators

import (
	"testing"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/internal/testutil"
)

func TestCoherenceNormalizesJudgeScale(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		want      float64
	}{
		{name: "top of scale", responses: []string{"score: 5"}, want: 1.0},
		{name: "bottom of scale", responses: []string{"score: 1"}, want: 0.0},
		{name: "midpoint", responses: []string{"score: 3"}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &testutil.FakeLLM{Responses: tt.responses}
			evaluator, err := NewCoherenceEvaluator(
				judgeMetric(evaluation.MetricResponseEvaluationScore, 0.5, 1),
				evaluation.EvaluatorConfig{Judge: llm},
			)
			if err != nil {
				t.Fatalf("NewCoherenceEvaluator() failed: %v", err)
			}
			result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
				Actual: []evaluation.Invocation{invocationWithResponse("q", "a")},
			})
			if err != nil {
				t.Fatalf("EvaluateInvocations() failed: %v", err)
			}
			if got := scoreOf(result); got != tt.want {
				t.Errorf("overall score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoherenceAveragesSamples(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{"score: 5", "score: 3"}}
	evaluator, err := NewCoherenceEvaluator(
		judgeMetric(evaluation.MetricResponseEvaluationScore, 0.5, 2),
		evaluation.EvaluatorConfig{Judge: llm},
	)
	if err != nil {
		t.Fatalf("NewCoherenceEvaluator() failed: %v", err)
	}
	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{invocationWithResponse("q", "a")},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got != 0.75 {
		t.Errorf("overall score = %v, want 0.75", got)
	}
}

func TestCoherenceDropsOutOfRangeSamples(t *testing.T) {
	// Scores outside 1-5 and unparseable samples are dropped; with none
	// left the invocation stays unevaluated.
	llm := &testutil.FakeLLM{Responses: []string{"score: 9", "score: 0.2", "no score"}}
	evaluator, err := NewCoherenceEvaluator(
		judgeMetric(evaluation.MetricResponseEvaluationScore, 0.5, 3),
		evaluation.EvaluatorConfig{Judge: llm},
	)
	if err != nil {
		t.Fatalf("NewCoherenceEvaluator() failed: %v", err)
	}
	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{invocationWithResponse("q", "a")},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if result.OverallScore != nil {
		t.Errorf("overall score = %v, want nil", *result.OverallScore)
	}
	if result.OverallStatus != evaluation.EvalStatusNotEvaluated {
		t.Errorf("overall status = %v, want NOT_EVALUATED", result.OverallStatus)
	}
}
