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
	"fmt"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/internal/rouge"
)

// responseMatchEvaluator scores final responses against references with
// ROUGE-1 F-measure.
type responseMatchEvaluator struct {
	threshold float64
	scorer    *rouge.Scorer
}

// NewResponseMatchEvaluator builds the response_match_score evaluator.
func NewResponseMatchEvaluator(metric evaluation.EvalMetric, _ evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	c, ok := metric.EffectiveCriterion().(evaluation.BaseCriterion)
	if !ok {
		return nil, fmt.Errorf("%w: metric %s got criterion %T",
			evaluation.ErrCriterionMismatch, metric.MetricName, metric.EffectiveCriterion())
	}
	scorer, err := rouge.NewScorer([]string{"rouge1"}, true)
	if err != nil {
		return nil, err
	}
	return &responseMatchEvaluator{threshold: c.PassThreshold(), scorer: scorer}, nil
}

func (e *responseMatchEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricResponseMatch
}

func (e *responseMatchEvaluator) RequiresExpected() bool { return true }

func (e *responseMatchEvaluator) EvaluateInvocations(_ context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
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
		per := evaluation.PerInvocationResult{
			ActualInvocation:   actual,
			ExpectedInvocation: expected,
			Status:             evaluation.EvalStatusNotEvaluated,
		}
		reference := expected.FinalResponseText()
		if reference != "" {
			rougeScores, err := e.scorer.Score(reference, actual.FinalResponseText())
			if err != nil {
				return nil, err
			}
			per.Score = evaluation.Float(rougeScores["rouge1"].FMeasure)
			per.Status = evaluation.StatusForScore(per.Score, e.threshold)
		}
		scores = append(scores, per.Score)
		result.PerInvocationResults = append(result.PerInvocationResults, per)
	}
	result.OverallScore = meanScores(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.threshold)
	return result, nil
}
