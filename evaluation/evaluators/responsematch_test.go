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
	"errors"
	"testing"

	"github.com/evalkit/evalkit/evaluation"
)

func responseMatchMetric(threshold float64) evaluation.EvalMetric {
	return evaluation.EvalMetric{
		MetricName: evaluation.MetricResponseMatch,
		Threshold:  threshold,
	}
}

func TestResponseMatchSameWordsDifferentOrder(t *testing.T) {
	evaluator, err := NewResponseMatchEvaluator(responseMatchMetric(0.5), evaluation.EvaluatorConfig{})
	if err != nil {
		t.Fatalf("NewResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{
			invocationWithResponse("What is the capital of France?", "Paris is the capital of France."),
		},
		Expected: []evaluation.Invocation{
			invocationWithResponse("What is the capital of France?", "The capital of France is Paris."),
		},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got < 0.8 {
		t.Errorf("overall score = %v, want >= 0.8 for reordered words", got)
	}
	if result.OverallStatus != evaluation.EvalStatusPassed {
		t.Errorf("overall status = %v, want PASSED at threshold 0.5", result.OverallStatus)
	}
}

func TestResponseMatchDisjointResponses(t *testing.T) {
	evaluator, err := NewResponseMatchEvaluator(responseMatchMetric(0.5), evaluation.EvaluatorConfig{})
	if err != nil {
		t.Fatalf("NewResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{
			invocationWithResponse("q", "bananas grow upside down"),
		},
		Expected: []evaluation.Invocation{
			invocationWithResponse("q", "the stock market closed flat"),
		},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got != 0.0 {
		t.Errorf("overall score = %v, want 0.0", got)
	}
	if result.OverallStatus != evaluation.EvalStatusFailed {
		t.Errorf("overall status = %v, want FAILED", result.OverallStatus)
	}
}

func TestResponseMatchEmptyReferenceSkipsInvocation(t *testing.T) {
	evaluator, err := NewResponseMatchEvaluator(responseMatchMetric(0.5), evaluation.EvaluatorConfig{})
	if err != nil {
		t.Fatalf("NewResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{
			invocationWithResponse("q", "some answer"),
		},
		Expected: []evaluation.Invocation{
			invocationWithResponse("q", ""),
		},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if result.OverallScore != nil {
		t.Errorf("overall score = %v, want nil with no reference", *result.OverallScore)
	}
	if result.OverallStatus != evaluation.EvalStatusNotEvaluated {
		t.Errorf("overall status = %v, want NOT_EVALUATED", result.OverallStatus)
	}
	if result.PerInvocationResults[0].Status != evaluation.EvalStatusNotEvaluated {
		t.Errorf("invocation status = %v, want NOT_EVALUATED", result.PerInvocationResults[0].Status)
	}
}

func TestResponseMatchRequiresExpected(t *testing.T) {
	evaluator, err := NewResponseMatchEvaluator(responseMatchMetric(0.5), evaluation.EvaluatorConfig{})
	if err != nil {
		t.Fatalf("NewResponseMatchEvaluator() failed: %v", err)
	}
	_, err = evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{invocationWithResponse("q", "a")},
	})
	if !errors.Is(err, evaluation.ErrExpectedInvocationsRequired) {
		t.Errorf("EvaluateInvocations() = %v, want ErrExpectedInvocationsRequired", err)
	}
}

func TestResponseMatchRejectsJudgeCriterion(t *testing.T) {
	_, err := NewResponseMatchEvaluator(evaluation.EvalMetric{
		MetricName: evaluation.MetricResponseMatch,
		Criterion:  evaluation.LlmAsAJudgeCriterion{},
	}, evaluation.EvaluatorConfig{})
	if !errors.Is(err, evaluation.ErrCriterionMismatch) {
		t.Errorf("NewResponseMatchEvaluator(judge criterion) = %v, want ErrCriterionMismatch", err)
	}
}

func TestResponseMatchFailsOnInvocationCountMismatch(t *testing.T) {
	evaluator, err := NewResponseMatchEvaluator(responseMatchMetric(0.5), evaluation.EvaluatorConfig{})
	if err != nil {
		t.Fatalf("NewResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{
			invocationWithResponse("q1", "The capital of France is Paris."),
		},
		Expected: []evaluation.Invocation{
			invocationWithResponse("q1", "The capital of France is Paris."),
			invocationWithResponse("q2", "The capital of Spain is Madrid."),
		},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got != 0.0 {
		t.Errorf("overall score = %v, want 0.0 on invocation count mismatch", got)
	}
	if result.OverallStatus != evaluation.EvalStatusFailed {
		t.Errorf("overall status = %v, want FAILED", result.OverallStatus)
	}
}
