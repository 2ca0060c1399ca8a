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

package evaluation

import (
	"context"

	"github.com/evalkit/evalkit/model"
)

// Evaluator is the core evaluation interface. All metric evaluators
// implement it.
type Evaluator interface {
	// EvaluateInvocations scores the actual invocations, optionally against
	// expected invocations or the conversation scenario.
	EvaluateInvocations(ctx context.Context, params EvaluateParams) (*EvaluationResult, error)

	// MetricType returns the metric this evaluator produces.
	MetricType() MetricType

	// RequiresExpected indicates if expected invocations are needed.
	RequiresExpected() bool
}

// EvaluateParams encapsulates the inputs to one evaluation.
type EvaluateParams struct {
	// Actual invocations from the agent being tested.
	Actual []Invocation

	// Expected reference invocations. Optional for some metrics.
	Expected []Invocation

	// Scenario is set for scenario-driven cases, used by the per-turn
	// simulator quality metric.
	Scenario *ConversationScenario
}

// EvaluatorFactory creates an evaluator for one configured metric. The
// factory validates that the metric's criterion variant matches the
// evaluator and fails with ErrCriterionMismatch otherwise.
type EvaluatorFactory func(metric EvalMetric, cfg EvaluatorConfig) (Evaluator, error)

// SafetyScorer delegates safety scoring to an external harm classifier.
type SafetyScorer interface {
	// ScoreSafety rates the response text in [0, 1], higher is safer.
	ScoreSafety(ctx context.Context, response string) (float64, error)
}

// EvaluatorConfig provides the shared collaborators evaluators may need.
type EvaluatorConfig struct {
	// Judge is the LLM used by LLM-as-judge evaluators.
	Judge model.LLM

	// SafetyScorer backs the safety metric. Optional.
	SafetyScorer SafetyScorer
}
