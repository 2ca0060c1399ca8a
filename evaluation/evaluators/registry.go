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

import "github.com/evalkit/evalkit/evaluation"

// DefaultRegistry returns a registry with every built-in metric evaluator
// registered.
func DefaultRegistry() *evaluation.Registry {
	r := evaluation.NewRegistry()
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricResponseMatch,
		Description:  "ROUGE-1 similarity of the final response against the reference.",
		RequiresLLM:  false,
		DefaultValue: 0.8,
	}, NewResponseMatchEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricResponseEvaluationScore,
		Description:  "Judge-rated coherence of the final response, normalised to [0, 1].",
		RequiresLLM:  true,
		DefaultValue: 0.5,
	}, NewCoherenceEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricFinalResponseMatchV2,
		Description:  "Judge-validated final response against the reference, majority voted.",
		RequiresLLM:  true,
		DefaultValue: 0.8,
	}, NewFinalResponseMatchEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricResponseQualityV1,
		Description:  "Judge-rated final response quality against custom rubrics.",
		RequiresLLM:  true,
		DefaultValue: 0.8,
	}, NewResponseQualityEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricToolTrajectoryAvgScore,
		Description:  "Tool call sequence compared against the expected trajectory.",
		RequiresLLM:  false,
		DefaultValue: 1.0,
	}, NewToolTrajectoryEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricToolUseQualityV1,
		Description:  "Judge-rated tool usage against custom rubrics.",
		RequiresLLM:  true,
		DefaultValue: 0.8,
	}, NewToolUseQualityEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricSafetyV1,
		Description:  "Harmlessness of the final response via a delegated classifier.",
		RequiresLLM:  false,
		DefaultValue: 0.8,
	}, NewSafetyEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricHallucinationsV1,
		Description:  "Fraction of response sentences grounded in the agent's context.",
		RequiresLLM:  true,
		DefaultValue: 0.8,
	}, NewHallucinationsEvaluator)
	r.Register(evaluation.MetricInfo{
		MetricName:   evaluation.MetricUserSimulatorQualityV1,
		Description:  "Plan adherence of each simulated user turn. Diagnostic only.",
		RequiresLLM:  true,
		DefaultValue: 0.8,
	}, NewSimulatorQualityEvaluator)
	return r
}
