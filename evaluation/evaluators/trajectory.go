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
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
)

// trajectoryEvaluator scores tool call sequences against the expected
// trajectory. Purely algorithmic, no judge involved.
type trajectoryEvaluator struct {
	threshold float64
	matchType evaluation.TrajectoryMatchType
}

// NewToolTrajectoryEvaluator builds the tool_trajectory_avg_score
// evaluator. A plain threshold criterion selects EXACT matching.
func NewToolTrajectoryEvaluator(metric evaluation.EvalMetric, _ evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	e := &trajectoryEvaluator{matchType: evaluation.TrajectoryExact}
	switch c := metric.EffectiveCriterion().(type) {
	case evaluation.ToolTrajectoryCriterion:
		e.threshold = c.PassThreshold()
		if c.MatchType != "" {
			e.matchType = c.MatchType
		}
	case evaluation.BaseCriterion:
		e.threshold = c.PassThreshold()
	default:
		return nil, fmt.Errorf("%w: metric %s got criterion %T",
			evaluation.ErrCriterionMismatch, metric.MetricName, c)
	}
	switch e.matchType {
	case evaluation.TrajectoryExact, evaluation.TrajectoryInOrder, evaluation.TrajectoryAnyOrder:
	default:
		return nil, fmt.Errorf("%w: unknown trajectory match type %q",
			evaluation.ErrInvalidInput, e.matchType)
	}
	return e, nil
}

func (e *trajectoryEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricToolTrajectoryAvgScore
}

func (e *trajectoryEvaluator) RequiresExpected() bool { return true }

func (e *trajectoryEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
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
		score := 0.0
		if trajectoryMatches(e.matchType, actual.ToolCalls(), expected.ToolCalls()) {
			score = 1.0
		}
		scores = append(scores, &score)
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation:   actual,
			ExpectedInvocation: expected,
			Score:              evaluation.Float(score),
			Status:             evaluation.StatusForScore(&score, e.threshold),
		})
	}
	result.OverallScore = meanScores(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.threshold)
	return result, nil
}

// trajectoryMatches reports whether the actual tool calls satisfy the
// expected trajectory under the given match type.
func trajectoryMatches(matchType evaluation.TrajectoryMatchType, actual, expected []*genai.FunctionCall) bool {
	switch matchType {
	case evaluation.TrajectoryInOrder:
		return isSubsequence(actual, expected)
	case evaluation.TrajectoryAnyOrder:
		return isMultisetSubset(actual, expected)
	default:
		return exactMatch(actual, expected)
	}
}

func exactMatch(actual, expected []*genai.FunctionCall) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range expected {
		if !callsEqual(actual[i], expected[i]) {
			return false
		}
	}
	return true
}

// isSubsequence reports whether expected appears within actual in order,
// allowing extra actual calls in between.
func isSubsequence(actual, expected []*genai.FunctionCall) bool {
	i := 0
	for _, call := range actual {
		if i == len(expected) {
			break
		}
		if callsEqual(call, expected[i]) {
			i++
		}
	}
	return i == len(expected)
}

// isMultisetSubset reports whether every expected call appears in actual,
// with multiplicity, in any order.
func isMultisetSubset(actual, expected []*genai.FunctionCall) bool {
	counts := make(map[string]int, len(actual))
	for _, call := range actual {
		counts[callKey(call)]++
	}
	for _, call := range expected {
		key := callKey(call)
		if counts[key] == 0 {
			return false
		}
		counts[key]--
	}
	return true
}

// callsEqual compares name and arguments structurally. Argument maps are
// compared through a canonical JSON key, so key order never matters.
func callsEqual(a, b *genai.FunctionCall) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name && callKey(a) == callKey(b)
}

// callKey canonicalises a function call for multiset comparison. JSON
// object keys marshal sorted, so equal argument maps produce equal keys.
func callKey(call *genai.FunctionCall) string {
	args, err := json.Marshal(call.Args)
	if err != nil {
		args = []byte(fmt.Sprintf("%v", call.Args))
	}
	return call.Name + "\x00" + string(args)
}
