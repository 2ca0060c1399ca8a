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
	"github.com/evalkit/evalkit/internal/testutil"
)

const (
	verdictValid   = `"is_the_agent_response_valid": ["valid"]`
	verdictInvalid = `"is_the_agent_response_valid": ["invalid"]`
)

func judgeMetric(name evaluation.MetricType, threshold float64, numSamples int) evaluation.EvalMetric {
	return evaluation.EvalMetric{
		MetricName: name,
		Threshold:  threshold,
		Criterion: evaluation.LlmAsAJudgeCriterion{
			BaseCriterion:     evaluation.BaseCriterion{Threshold: threshold},
			JudgeModelOptions: evaluation.JudgeModelOptions{NumSamples: numSamples},
		},
	}
}

func TestFinalResponseMatchMajorityVote(t *testing.T) {
	// Three of five samples say valid, so the invocation scores 1.0.
	llm := &testutil.FakeLLM{Responses: []string{
		verdictValid, verdictValid, verdictInvalid, verdictValid, verdictInvalid,
	}}
	evaluator, err := NewFinalResponseMatchEvaluator(
		judgeMetric(evaluation.MetricFinalResponseMatchV2, 0.8, 5),
		evaluation.EvaluatorConfig{Judge: llm},
	)
	if err != nil {
		t.Fatalf("NewFinalResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual:   []evaluation.Invocation{invocationWithResponse("q", "the answer")},
		Expected: []evaluation.Invocation{invocationWithResponse("q", "the reference")},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got != 1.0 {
		t.Errorf("overall score = %v, want 1.0", got)
	}
	if result.OverallStatus != evaluation.EvalStatusPassed {
		t.Errorf("overall status = %v, want PASSED", result.OverallStatus)
	}
	if len(llm.Requests) != 5 {
		t.Errorf("judge issued %d samples, want 5", len(llm.Requests))
	}
}

func TestFinalResponseMatchOverallIsFractionOfValidInvocations(t *testing.T) {
	// First invocation judged valid, second invalid: the overall score is
	// the fraction of valid invocations, 0.5, failing the 0.8 threshold.
	llm := &testutil.FakeLLM{Responses: []string{verdictValid, verdictInvalid}}
	evaluator, err := NewFinalResponseMatchEvaluator(
		judgeMetric(evaluation.MetricFinalResponseMatchV2, 0.8, 1),
		evaluation.EvaluatorConfig{Judge: llm},
	)
	if err != nil {
		t.Fatalf("NewFinalResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual: []evaluation.Invocation{
			invocationWithResponse("q1", "a1"),
			invocationWithResponse("q2", "a2"),
		},
		Expected: []evaluation.Invocation{
			invocationWithResponse("q1", "ref1"),
			invocationWithResponse("q2", "ref2"),
		},
	})
	if err != nil {
		t.Fatalf("EvaluateInvocations() failed: %v", err)
	}
	if got := scoreOf(result); got != 0.5 {
		t.Errorf("overall score = %v, want 0.5", got)
	}
	if result.OverallStatus != evaluation.EvalStatusFailed {
		t.Errorf("overall status = %v, want FAILED at threshold 0.8", result.OverallStatus)
	}
	if result.PerInvocationResults[0].Status != evaluation.EvalStatusPassed {
		t.Errorf("invocation 0 status = %v, want PASSED", result.PerInvocationResults[0].Status)
	}
	if result.PerInvocationResults[1].Status != evaluation.EvalStatusFailed {
		t.Errorf("invocation 1 status = %v, want FAILED", result.PerInvocationResults[1].Status)
	}
}

func TestFinalResponseMatchUnusableSamples(t *testing.T) {
	// No sample carries a verdict, so the invocation stays unevaluated.
	llm := &testutil.FakeLLM{Responses: []string{"no verdict here", "still nothing"}}
	evaluator, err := NewFinalResponseMatchEvaluator(
		judgeMetric(evaluation.MetricFinalResponseMatchV2, 0.8, 2),
		evaluation.EvaluatorConfig{Judge: llm},
	)
	if err != nil {
		t.Fatalf("NewFinalResponseMatchEvaluator() failed: %v", err)
	}

	result, err := evaluator.EvaluateInvocations(t.Context(), evaluation.EvaluateParams{
		Actual:   []evaluation.Invocation{invocationWithResponse("q", "a")},
		Expected: []evaluation.Invocation{invocationWithResponse("q", "ref")},
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

func TestFinalResponseMatchRequiresJudge(t *testing.T) {
	_, err := NewFinalResponseMatchEvaluator(
		judgeMetric(evaluation.MetricFinalResponseMatchV2, 0.8, 1),
		evaluation.EvaluatorConfig{},
	)
	if !errors.Is(err, evaluation.ErrInvalidInput) {
		t.Errorf("NewFinalResponseMatchEvaluator(no judge) = %v, want ErrInvalidInput", err)
	}
}
