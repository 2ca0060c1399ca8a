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
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultParallelism bounds concurrent case inference and concurrent metric
// evaluation when the config does not say otherwise.
const DefaultParallelism = 4

// EvalConfig is the user-facing evaluation configuration.
type EvalConfig struct {
	// Criteria maps metric names to either a scalar threshold or a full
	// criterion object. Scalars are coerced to BaseCriterion.
	Criteria map[string]Criterion

	// UserSimulatorConfig configures the LLM-backed user simulator for
	// scenario-driven cases.
	UserSimulatorConfig *UserSimulatorConfig
}

// UserSimulatorConfig configures the LLM-backed user simulator.
type UserSimulatorConfig struct {
	Model              string         `json:"model" yaml:"model" mapstructure:"model"`
	ModelConfiguration map[string]any `json:"model_configuration,omitempty" yaml:"model_configuration" mapstructure:"model_configuration"`

	// MaxAllowedInvocations caps simulated turns; -1 disables the cap.
	// Zero means the default of 20.
	MaxAllowedInvocations int `json:"max_allowed_invocations,omitempty" yaml:"max_allowed_invocations" mapstructure:"max_allowed_invocations"`

	// CustomInstructions overrides the simulator prompt template. Must
	// contain the stop-signal, conversation-plan, and conversation-history
	// placeholders.
	CustomInstructions string `json:"custom_instructions,omitempty" yaml:"custom_instructions" mapstructure:"custom_instructions"`
}

// InferenceConfig bounds the inference half of the pipeline.
type InferenceConfig struct {
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels"`
	Parallelism int               `json:"parallelism,omitempty" yaml:"parallelism"`

	// NumRuns repeats inference per case. Zero means one run.
	NumRuns int `json:"num_runs,omitempty" yaml:"num_runs"`
}

// Workers returns the configured parallelism with defaults applied.
func (c InferenceConfig) Workers() int {
	if c.Parallelism <= 0 {
		return DefaultParallelism
	}
	return c.Parallelism
}

// Runs returns the configured run count with defaults applied.
func (c InferenceConfig) Runs() int {
	if c.NumRuns <= 0 {
		return 1
	}
	return c.NumRuns
}

// EvaluateConfig bounds the evaluation half of the pipeline.
type EvaluateConfig struct {
	EvalMetrics []EvalMetric `json:"eval_metrics" yaml:"eval_metrics"`
	Parallelism int          `json:"parallelism,omitempty" yaml:"parallelism"`
}

// Workers returns the configured parallelism with defaults applied.
func (c EvaluateConfig) Workers() int {
	if c.Parallelism <= 0 {
		return DefaultParallelism
	}
	return c.Parallelism
}

// rawEvalConfig is the on-disk shape before criterion coercion.
type rawEvalConfig struct {
	Criteria            map[string]any       `yaml:"criteria"`
	UserSimulatorConfig *UserSimulatorConfig `yaml:"user_simulator_config"`
}

// ParseEvalConfig decodes an EvalConfig from YAML (or JSON, which YAML
// subsumes), coercing scalar thresholds into BaseCriterion values and
// criterion maps into the variant the metric name implies.
func ParseEvalConfig(data []byte) (*EvalConfig, error) {
	var raw rawEvalConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse eval config: %v", ErrInvalidInput, err)
	}

	cfg := &EvalConfig{
		Criteria:            make(map[string]Criterion, len(raw.Criteria)),
		UserSimulatorConfig: raw.UserSimulatorConfig,
	}
	for name, value := range raw.Criteria {
		criterion, err := CoerceCriterion(MetricType(name), value)
		if err != nil {
			return nil, fmt.Errorf("criterion for %s: %w", name, err)
		}
		cfg.Criteria[name] = criterion
	}
	return cfg, nil
}

// EvalMetrics converts the criteria map into the metric list the evaluate
// pipeline consumes.
func (c *EvalConfig) EvalMetrics() []EvalMetric {
	metrics := make([]EvalMetric, 0, len(c.Criteria))
	for name, criterion := range c.Criteria {
		metrics = append(metrics, EvalMetric{
			MetricName: MetricType(name),
			Threshold:  criterion.PassThreshold(),
			Criterion:  criterion,
		})
	}
	return metrics
}

// CoerceCriterion converts a decoded config value into the criterion
// variant appropriate for the metric: numbers become BaseCriterion, maps
// decode into the metric's declared variant.
func CoerceCriterion(metric MetricType, value any) (Criterion, error) {
	switch v := value.(type) {
	case int:
		return BaseCriterion{Threshold: float64(v)}, nil
	case float64:
		return BaseCriterion{Threshold: v}, nil
	case map[string]any:
		return decodeCriterionMap(metric, v)
	case Criterion:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: criterion must be a number or a mapping, got %T", ErrInvalidInput, value)
	}
}

func decodeCriterionMap(metric MetricType, value map[string]any) (Criterion, error) {
	decode := func(target any) error {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil
	}

	switch metric {
	case MetricToolTrajectoryAvgScore:
		var c ToolTrajectoryCriterion
		if err := decode(&c); err != nil {
			return nil, err
		}
		if c.MatchType == "" {
			c.MatchType = TrajectoryExact
		}
		return c, nil
	case MetricFinalResponseMatchV2, MetricResponseEvaluationScore, MetricUserSimulatorQualityV1:
		var c LlmAsAJudgeCriterion
		if err := decode(&c); err != nil {
			return nil, err
		}
		return c, nil
	case MetricResponseQualityV1, MetricToolUseQualityV1:
		var c RubricsBasedCriterion
		if err := decode(&c); err != nil {
			return nil, err
		}
		return c, nil
	case MetricHallucinationsV1:
		var c HallucinationsCriterion
		if err := decode(&c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		var c BaseCriterion
		if err := decode(&c); err != nil {
			return nil, err
		}
		return c, nil
	}
}
