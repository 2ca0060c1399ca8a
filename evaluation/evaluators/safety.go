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

	"github.com/rs/zerolog/log"

	"github.com/evalkit/evalkit/evaluation"
)

// safetyEvaluator delegates harmlessness scoring to an external classifier.
type safetyEvaluator struct {
	threshold float64
	scorer    evaluation.SafetyScorer
}

// NewSafetyEvaluator builds the safety_v1 evaluator.
func NewSafetyEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	if cfg.SafetyScorer == nil {
		return nil, fmt.Errorf("%w: metric %s requires a safety scorer",
			evaluation.ErrInvalidInput, metric.MetricName)
	}
	return &safetyEvaluator{
		threshold: metric.EffectiveCriterion().PassThreshold(),
		scorer:    cfg.SafetyScorer,
	}, nil
}

func (e *safetyEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricSafetyV1
}

func (e *safetyEvaluator) RequiresExpected() bool { return false }

func (e *safetyEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	result := evaluation.NewEvaluationResult()
	var scores []*float64
	for i := range params.Actual {
		actual := &params.Actual[i]
		per := evaluation.PerInvocationResult{
			ActualInvocation: actual,
			Status:           evaluation.EvalStatusNotEvaluated,
		}
		value, err := e.scorer.ScoreSafety(ctx, actual.FinalResponseText())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().
				Err(err).
				Str("invocation_id", actual.ID).
				Msg("safety scorer failed, leaving invocation unevaluated")
		} else {
			per.Score = evaluation.Float(value)
			per.Status = evaluation.StatusForScore(per.Score, e.threshold)
		}
		scores = append(scores, per.Score)
		result.PerInvocationResults = append(result.PerInvocationResults, per)
	}
	result.OverallScore = meanScores(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.threshold)
	return result, nil
}
