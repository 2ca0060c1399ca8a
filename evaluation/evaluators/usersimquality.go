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
	"strings"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/llmjudge"
)

// simulatorQualityEvaluator rates each simulated user turn against the
// conversation plan. It scores the simulator, not the agent, so the eval
// service keeps it out of the case's final status.
type simulatorQualityEvaluator struct {
	criterion evaluation.LlmAsAJudgeCriterion
	judge     *llmjudge.Judge
}

// NewSimulatorQualityEvaluator builds the
// per_turn_user_simulator_quality_v1 evaluator.
func NewSimulatorQualityEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	c, err := judgeCriterion(metric)
	if err != nil {
		return nil, err
	}
	if err := requireJudge(metric, cfg); err != nil {
		return nil, err
	}
	return &simulatorQualityEvaluator{criterion: c, judge: llmjudge.NewJudge(cfg.Judge)}, nil
}

func (e *simulatorQualityEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricUserSimulatorQualityV1
}

func (e *simulatorQualityEvaluator) RequiresExpected() bool { return false }

func (e *simulatorQualityEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	if params.Scenario == nil {
		return nil, fmt.Errorf("%w: metric %s only applies to scenario-driven cases",
			evaluation.ErrInvalidInput, e.MetricType())
	}
	result := evaluation.NewEvaluationResult()
	var scores []*float64
	for i := range params.Actual {
		actual := &params.Actual[i]
		prompt := llmjudge.BuildSimulatorQualityPrompt(
			params.Scenario.ConversationPlan,
			renderHistory(params.Actual[:i]),
			actual.UserText(),
		)
		samples, err := e.judge.Sample(ctx, prompt, e.criterion.JudgeModelOptions)
		if err != nil {
			return nil, err
		}
		verdicts := make([]llmjudge.Verdict, 0, len(samples))
		for _, sample := range samples {
			verdicts = append(verdicts, llmjudge.ParseValidityVerdict(sample))
		}
		score := llmjudge.MajorityVote(verdicts)
		scores = append(scores, score)
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation: actual,
			Score:            score,
			Status:           evaluation.StatusForScore(score, e.criterion.PassThreshold()),
		})
	}
	result.OverallScore = llmjudge.FractionPassing(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.criterion.PassThreshold())
	return result, nil
}

func renderHistory(invocations []evaluation.Invocation) string {
	if len(invocations) == 0 {
		return "(conversation start)"
	}
	var sb strings.Builder
	for i := range invocations {
		fmt.Fprintf(&sb, "user: %s\n", invocations[i].UserText())
		fmt.Fprintf(&sb, "agent: %s\n", invocations[i].FinalResponseText())
	}
	return sb.String()
}
