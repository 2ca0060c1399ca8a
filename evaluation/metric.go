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

import "google.golang.org/genai"

// MetricType identifies a specific evaluation metric.
type MetricType string

const (
	// Response quality metrics

	// MetricResponseMatch compares agent response against reference using ROUGE-1.
	// Score: 0.0 - 1.0 (higher is better). Algorithmic, no LLM required.
	MetricResponseMatch MetricType = "response_match_score"

	// MetricResponseEvaluationScore assesses response coherence and quality
	// on a 1-5 scale, normalised to 0.0 - 1.0.
	MetricResponseEvaluationScore MetricType = "response_evaluation_score"

	// MetricFinalResponseMatchV2 uses LLM-as-Judge to validate the final
	// response against the reference. Score per invocation: 0.0 or 1.0,
	// majority-voted across samples.
	MetricFinalResponseMatchV2 MetricType = "final_response_match_v2"

	// MetricResponseQualityV1 assesses final response quality against
	// custom rubrics. Score: 0.0 - 1.0 based on rubric verdicts.
	MetricResponseQualityV1 MetricType = "rubric_based_final_response_quality_v1"

	// Tool usage metrics

	// MetricToolTrajectoryAvgScore validates tool call sequences against the
	// expected trajectory. Score: 0.0 or 1.0 per invocation, averaged.
	MetricToolTrajectoryAvgScore MetricType = "tool_trajectory_avg_score"

	// MetricToolUseQualityV1 evaluates tool usage against custom rubrics.
	MetricToolUseQualityV1 MetricType = "rubric_based_tool_use_quality_v1"

	// Safety & quality metrics

	// MetricSafetyV1 evaluates response harmlessness via a delegating scorer.
	MetricSafetyV1 MetricType = "safety_v1"

	// MetricHallucinationsV1 detects unsupported or contradictory claims.
	// Two-step process: sentence segmentation, then per-sentence validation.
	// Score: fraction of supported + not_applicable sentences.
	MetricHallucinationsV1 MetricType = "hallucinations_v1"

	// MetricUserSimulatorQualityV1 rates each simulated user turn against
	// the conversation plan.
	MetricUserSimulatorQualityV1 MetricType = "per_turn_user_simulator_quality_v1"
)

// String returns the string representation of the metric type.
func (m MetricType) String() string { return string(m) }

// RequiresLLM reports whether the metric requires a judge LLM.
func (m MetricType) RequiresLLM() bool {
	switch m {
	case MetricResponseMatch, MetricToolTrajectoryAvgScore:
		return false
	default:
		return true
	}
}

// RequiresExpected reports whether the metric needs expected invocations.
func (m MetricType) RequiresExpected() bool {
	switch m {
	case MetricResponseMatch, MetricFinalResponseMatchV2, MetricToolTrajectoryAvgScore:
		return true
	default:
		return false
	}
}

// TrajectoryMatchType selects how expected tool calls are matched against
// actual tool calls.
type TrajectoryMatchType string

const (
	// TrajectoryExact requires equal length and pairwise equality.
	TrajectoryExact TrajectoryMatchType = "EXACT"
	// TrajectoryInOrder requires expected to be a subsequence of actual.
	TrajectoryInOrder TrajectoryMatchType = "IN_ORDER"
	// TrajectoryAnyOrder requires expected to be a multiset subset of actual.
	TrajectoryAnyOrder TrajectoryMatchType = "ANY_ORDER"
)

// Criterion configures how a metric scores and where its pass threshold
// lies. Criteria are tagged variants; each evaluator validates the variant
// it receives at construction and rejects the rest with ErrCriterionMismatch.
type Criterion interface {
	// PassThreshold is the minimum score for PASSED status.
	PassThreshold() float64
}

// BaseCriterion is the plain threshold-only criterion. Scalar thresholds in
// configuration are coerced to this type.
type BaseCriterion struct {
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// PassThreshold implements Criterion.
func (c BaseCriterion) PassThreshold() float64 { return c.Threshold }

// ToolTrajectoryCriterion configures tool trajectory matching.
type ToolTrajectoryCriterion struct {
	BaseCriterion `yaml:",inline" mapstructure:",squash"`

	MatchType TrajectoryMatchType `json:"match_type" yaml:"match_type" mapstructure:"match_type"`
}

// LlmAsAJudgeCriterion configures LLM-as-judge metrics.
type LlmAsAJudgeCriterion struct {
	BaseCriterion `yaml:",inline" mapstructure:",squash"`

	JudgeModelOptions JudgeModelOptions `json:"judge_model_options" yaml:"judge_model_options" mapstructure:"judge_model_options"`
}

// RubricsBasedCriterion configures rubric-based LLM-as-judge metrics.
type RubricsBasedCriterion struct {
	LlmAsAJudgeCriterion `yaml:",inline" mapstructure:",squash"`

	Rubrics []Rubric `json:"rubrics" yaml:"rubrics" mapstructure:"rubrics"`
}

// HallucinationsCriterion configures the hallucination metric.
type HallucinationsCriterion struct {
	LlmAsAJudgeCriterion `yaml:",inline" mapstructure:",squash"`

	// EvaluateIntermediateNLResponses also scores intermediate natural
	// language responses, not just the final one.
	EvaluateIntermediateNLResponses bool `json:"evaluate_intermediate_nl_responses" yaml:"evaluate_intermediate_nl_responses" mapstructure:"evaluate_intermediate_nl_responses"`
}

// DefaultNumSamples is how many times the judge is sampled per step when
// the criterion does not say otherwise.
const DefaultNumSamples = 5

// JudgeModelOptions selects and configures the judge LLM.
type JudgeModelOptions struct {
	JudgeModelID     string                       `json:"judge_model_id" yaml:"judge_model_id" mapstructure:"judge_model_id"`
	JudgeModelConfig *genai.GenerateContentConfig `json:"judge_model_config,omitempty" yaml:"-" mapstructure:"-"`

	// NumSamples defaults to DefaultNumSamples when zero.
	NumSamples int `json:"num_samples,omitempty" yaml:"num_samples" mapstructure:"num_samples"`
}

// SampleCount returns NumSamples with the default applied.
func (o JudgeModelOptions) SampleCount() int {
	if o.NumSamples <= 0 {
		return DefaultNumSamples
	}
	return o.NumSamples
}

// EvalMetric names one metric to run and how to judge it.
type EvalMetric struct {
	MetricName MetricType `json:"metric_name" yaml:"metric_name"`
	Threshold  float64    `json:"threshold" yaml:"threshold"`

	// Criterion carries the metric-specific configuration. When nil, a
	// BaseCriterion with the scalar threshold is assumed.
	Criterion Criterion `json:"-" yaml:"-"`
}

// EffectiveCriterion returns the configured criterion, falling back to a
// BaseCriterion built from the scalar threshold.
func (m EvalMetric) EffectiveCriterion() Criterion {
	if m.Criterion != nil {
		return m.Criterion
	}
	return BaseCriterion{Threshold: m.Threshold}
}

// MetricInfo describes a registered metric.
type MetricInfo struct {
	MetricName   MetricType `json:"metric_name"`
	Description  string     `json:"description,omitempty"`
	RequiresLLM  bool       `json:"requires_llm"`
	DefaultValue float64    `json:"default_threshold,omitempty"`
}

// Clone returns a copy of the metric info.
func (i MetricInfo) Clone() MetricInfo { return i }
