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

// Package evaluators provides the built-in metric evaluators and the
// default registry wiring them together.
package evaluators

import (
	"fmt"

	"github.com/evalkit/evalkit/evaluation"
)

// judgeCriterion extracts the LLM-as-judge criterion, coercing a plain
// threshold to one with default judge options.
func judgeCriterion(metric evaluation.EvalMetric) (evaluation.LlmAsAJudgeCriterion, error) {
	switch c := metric.EffectiveCriterion().(type) {
	case evaluation.LlmAsAJudgeCriterion:
		return c, nil
	case evaluation.HallucinationsCriterion:
		return c.LlmAsAJudgeCriterion, nil
	case evaluation.RubricsBasedCriterion:
		return c.LlmAsAJudgeCriterion, nil
	case evaluation.BaseCriterion:
		return evaluation.LlmAsAJudgeCriterion{BaseCriterion: c}, nil
	default:
		return evaluation.LlmAsAJudgeCriterion{}, fmt.Errorf(
			"%w: metric %s got criterion %T", evaluation.ErrCriterionMismatch, metric.MetricName, c)
	}
}

// requireJudge validates that a judge LLM was configured.
func requireJudge(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) error {
	if cfg.Judge == nil {
		return fmt.Errorf("%w: metric %s requires a judge model", evaluation.ErrInvalidInput, metric.MetricName)
	}
	return nil
}

// meanScores averages the non-nil per-invocation scores. Nil when nothing
// was evaluated.
func meanScores(scores []*float64) *float64 {
	var sum float64
	var count int
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		count++
	}
	if count == 0 {
		return nil
	}
	return evaluation.Float(sum / float64(count))
}

// zipInvocations pairs actual invocations with their expected counterparts.
// Callers check the counts match first; the shorter list bounds the pairing.
func zipInvocations(actual, expected []evaluation.Invocation) [][2]*evaluation.Invocation {
	n := min(len(actual), len(expected))
	pairs := make([][2]*evaluation.Invocation, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]*evaluation.Invocation{&actual[i], &expected[i]})
	}
	return pairs
}

// invocationCountMismatch fails the case when the agent produced a
// different number of invocations than the scripted conversation expects.
// Per-invocation metrics cannot pair the lists, so every actual invocation
// scores zero. Nil when the counts match.
func invocationCountMismatch(params evaluation.EvaluateParams) *evaluation.EvaluationResult {
	if len(params.Actual) == len(params.Expected) {
		return nil
	}
	result := evaluation.NewEvaluationResult()
	for i := range params.Actual {
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation: &params.Actual[i],
			Score:            evaluation.Float(0),
			Status:           evaluation.EvalStatusFailed,
		})
	}
	result.OverallScore = evaluation.Float(0)
	result.OverallStatus = evaluation.EvalStatusFailed
	return result
}
