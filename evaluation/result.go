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

import "time"

// EvalStatus represents the evaluation outcome.
type EvalStatus string

const (
	EvalStatusPassed       EvalStatus = "PASSED"
	EvalStatusFailed       EvalStatus = "FAILED"
	EvalStatusNotEvaluated EvalStatus = "NOT_EVALUATED"
)

// Float returns a pointer to v, for optional score fields.
func Float(v float64) *float64 { return &v }

// StatusForScore applies the universal threshold rule: PASSED iff the score
// meets the threshold, NOT_EVALUATED iff there is no score.
func StatusForScore(score *float64, threshold float64) EvalStatus {
	if score == nil {
		return EvalStatusNotEvaluated
	}
	if *score >= threshold {
		return EvalStatusPassed
	}
	return EvalStatusFailed
}

// PerInvocationResult scores one actual invocation, optionally against its
// expected counterpart.
type PerInvocationResult struct {
	ActualInvocation   *Invocation `json:"actual_invocation"`
	ExpectedInvocation *Invocation `json:"expected_invocation,omitempty"`

	Score  *float64   `json:"score,omitempty"`
	Status EvalStatus `json:"eval_status"`

	RubricScores []RubricScore `json:"rubric_scores,omitempty"`
}

// EvaluationResult is one metric's outcome over a list of invocations.
type EvaluationResult struct {
	OverallScore  *float64   `json:"overall_score,omitempty"`
	OverallStatus EvalStatus `json:"overall_eval_status"`

	PerInvocationResults []PerInvocationResult `json:"per_invocation_results,omitempty"`

	OverallRubricScores []RubricScore `json:"overall_rubric_scores,omitempty"`
}

// NewEvaluationResult returns an empty result in the NOT_EVALUATED state.
func NewEvaluationResult() *EvaluationResult {
	return &EvaluationResult{OverallStatus: EvalStatusNotEvaluated}
}

// EvalMetricResult is an EvalMetric together with its outcome.
type EvalMetricResult struct {
	MetricName MetricType `json:"metric_name"`
	Threshold  float64    `json:"threshold"`

	Score  *float64   `json:"score,omitempty"`
	Status EvalStatus `json:"eval_status"`

	Details *EvalMetricResultDetails `json:"details,omitempty"`
}

// EvalMetricResultDetails carries metric-specific extras.
type EvalMetricResultDetails struct {
	RubricScores []RubricScore `json:"rubric_scores,omitempty"`
}

// InvocationMetricResults holds per-metric results for a single actual
// invocation.
type InvocationMetricResults struct {
	InvocationID string             `json:"invocation_id,omitempty"`
	Results      []EvalMetricResult `json:"eval_metric_results"`
}

// EvalCaseResult aggregates every metric outcome for one eval case.
type EvalCaseResult struct {
	EvalSetID string `json:"eval_set_id"`
	EvalID    string `json:"eval_id"`

	FinalStatus EvalStatus `json:"final_eval_status"`

	OverallMetricResults []EvalMetricResult        `json:"overall_eval_metric_results"`
	PerInvocationResults []InvocationMetricResults `json:"eval_metric_result_per_invocation"`

	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

// EvalSetResult is the persisted rollup of a full eval set run.
type EvalSetResult struct {
	EvalSetResultID   string           `json:"eval_set_result_id"`
	EvalSetResultName string           `json:"eval_set_result_name,omitempty"`
	EvalSetID         string           `json:"eval_set_id"`
	EvalCaseResults   []EvalCaseResult `json:"eval_case_results"`
	CreatedAt         time.Time        `json:"creation_timestamp"`
}

// InferenceStatus is the outcome of running inference for one case.
type InferenceStatus string

const (
	InferenceStatusSuccess InferenceStatus = "SUCCESS"
	InferenceStatusFailure InferenceStatus = "FAILURE"
)

// InferenceResult is everything one case produced during inference.
type InferenceResult struct {
	AppName    string          `json:"app_name"`
	EvalSetID  string          `json:"eval_set_id"`
	EvalCaseID string          `json:"eval_case_id"`
	SessionID  string          `json:"session_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Status     InferenceStatus `json:"status"`

	// Inferences holds the invocations for the case's runs. Each run
	// contributes one ordered list.
	Inferences [][]Invocation `json:"inferences,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}
