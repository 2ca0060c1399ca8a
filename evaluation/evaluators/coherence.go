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

// coherenceEvaluator rates response coherence on a 1-5 judge scale and
// normalises it to [0, 1].
type coherenceEvaluator struct {
	criterion evaluation.LlmAsAJudgeCriterion
	judge     *llmjudge.Judge
}

// NewCoherenceEvaluator builds the response_evaluation_score evaluator.
func NewCoherenceEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	c, err := judgeCriterion(metric)
	if err != nil {
		return nil, err
	}
	if err := requireJudge(metric, cfg); err != nil {
		return nil, err
	}
	return &coherenceEvaluator{criterion: c, judge: llmjudge.NewJudge(cfg.Judge)}, nil
}

func (e *coherenceEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricResponseEvaluationScore
}

func (e *coherenceEvaluator) RequiresExpected() bool { return false }

func (e *coherenceEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	result := evaluation.NewEvaluationResult()
	var scores []*float64
	for i := range params.Actual {
		actual := &params.Actual[i]
		per := evaluation.PerInvocationResult{
			ActualInvocation: actual,
			Status:           evaluation.EvalStatusNotEvaluated,
		}
		prompt := llmjudge.BuildCoherencePrompt(actual.UserText(), actual.FinalResponseText())
		samples, err := e.judge.Sample(ctx, prompt, e.criterion.JudgeModelOptions)
		if err != nil {
			return nil, err
		}
		var sampleScores []*float64
		for _, sample := range samples {
			raw, ok := llmjudge.ParseScoreField(sample)
			if !ok || raw < 1 || raw > 5 {
				continue
			}
			sampleScores = append(sampleScores, evaluation.Float((raw-1)/4))
		}
		per.Score = meanScores(sampleScores)
		per.Status = evaluation.StatusForScore(per.Score, e.criterion.PassThreshold())
		scores = append(scores, per.Score)
		result.PerInvocationResults = append(result.PerInvocationResults, per)
	}
	result.OverallScore = meanScores(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.criterion.PassThreshold())
	return result, nil
}
