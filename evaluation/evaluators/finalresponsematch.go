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
	"context"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/llmjudge"
)

// finalResponseMatchEvaluator validates final responses against references
// with an LLM judge, majority-voted across repeated samples.
type finalResponseMatchEvaluator struct {
	criterion evaluation.LlmAsAJudgeCriterion
	judge     *llmjudge.Judge
}

// NewFinalResponseMatchEvaluator builds the final_response_match_v2
// evaluator.
func NewFinalResponseMatchEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	c, err := judgeCriterion(metric)
	if err != nil {
		return nil, err
	}
	if err := requireJudge(metric, cfg); err != nil {
		return nil, err
	}
	return &finalResponseMatchEvaluator{criterion: c, judge: llmjudge.NewJudge(cfg.Judge)}, nil
}

func (e *finalResponseMatchEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricFinalResponseMatchV2
}

func (e *finalResponseMatchEvaluator) RequiresExpected() bool { return true }

func (e *finalResponseMatchEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	if len(params.Expected) == 0 {
		return nil, evaluation.ErrExpectedInvocationsRequired
	}
	if mismatch := invocationCountMismatch(params); mismatch != nil {
		return mismatch, nil
	}
	result := evaluation.NewEvaluationResult()
	var scores []*float64
	for _, pair := range zipInvocations(params.Actual, params.Expected) {
		actual, expected := pair[0], pair[1]
		prompt := llmjudge.BuildFinalResponseMatchPrompt(
			actual.UserText(),
			actual.FinalResponseText(),
			expected.FinalResponseText(),
		)
		samples, err := e.judge.Sample(ctx, prompt, e.criterion.JudgeModelOptions)
		if err != nil {
			return nil, err
		}
		verdicts := make([]llmjudge.Verdict, 0, len(samples))
		for _, sample := range samples {
			verdicts = append(verdicts, llmjudge.ParseValidityVerdict(sample))
		}
		score := llmjudge.MajorityVote(verdicts)
		scores = append(scores, score)
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation:   actual,
			ExpectedInvocation: expected,
			Score:              score,
			Status:             evaluation.StatusForScore(score, e.criterion.PassThreshold()),
		})
	}
	// The overall score is the fraction of invocations judged valid, not
	// the mean of judge sample scores.
	result.OverallScore = llmjudge.FractionPassing(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.criterion.PassThreshold())
	return result, nil
}
