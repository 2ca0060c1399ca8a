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
	"strings"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/llmjudge"
)

// rubricEvaluator judges each invocation against a fixed set of rubrics.
// The task statement and the payload extractor distinguish the response
// quality metric from the tool use metric.
type rubricEvaluator struct {
	metricType evaluation.MetricType
	task       string
	payload    func(*evaluation.Invocation) string
	criterion  evaluation.RubricsBasedCriterion
	judge      *llmjudge.Judge
}

// NewResponseQualityEvaluator builds the
// rubric_based_final_response_quality_v1 evaluator.
func NewResponseQualityEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	return newRubricEvaluator(metric, cfg, evaluation.MetricResponseQualityV1,
		llmjudge.ResponseQualityTask, func(inv *evaluation.Invocation) string {
			return "Agent response:\n" + inv.FinalResponseText()
		})
}

// NewToolUseQualityEvaluator builds the rubric_based_tool_use_quality_v1
// evaluator.
func NewToolUseQualityEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	return newRubricEvaluator(metric, cfg, evaluation.MetricToolUseQualityV1,
		llmjudge.ToolUseQualityTask, toolUsePayload)
}

func newRubricEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig, metricType evaluation.MetricType, task string, payload func(*evaluation.Invocation) string) (evaluation.Evaluator, error) {
	c, ok := metric.EffectiveCriterion().(evaluation.RubricsBasedCriterion)
	if !ok {
		return nil, fmt.Errorf("%w: metric %s got criterion %T",
			evaluation.ErrCriterionMismatch, metric.MetricName, metric.EffectiveCriterion())
	}
	if len(c.Rubrics) == 0 {
		return nil, fmt.Errorf("%w: metric %s configured without rubrics",
			evaluation.ErrInvalidInput, metric.MetricName)
	}
	if err := requireJudge(metric, cfg); err != nil {
		return nil, err
	}
	return &rubricEvaluator{
		metricType: metricType,
		task:       task,
		payload:    payload,
		criterion:  c,
		judge:      llmjudge.NewJudge(cfg.Judge),
	}, nil
}

func (e *rubricEvaluator) MetricType() evaluation.MetricType { return e.metricType }

func (e *rubricEvaluator) RequiresExpected() bool { return false }

func (e *rubricEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	rubricIDs := make([]string, 0, len(e.criterion.Rubrics))
	for _, r := range e.criterion.Rubrics {
		rubricIDs = append(rubricIDs, r.ID)
	}

	result := evaluation.NewEvaluationResult()
	var scores []*float64
	var allRubricValues []*float64
	var perInvocationRubrics [][]evaluation.RubricScore
	for i := range params.Actual {
		actual := &params.Actual[i]
		prompt := llmjudge.BuildRubricPrompt(e.task, actual.UserText(), e.payload(actual), e.criterion.Rubrics)
		samples, err := e.judge.Sample(ctx, prompt, e.criterion.JudgeModelOptions)
		if err != nil {
			return nil, err
		}
		sampleScores := make([][]evaluation.RubricScore, 0, len(samples))
		for _, sample := range samples {
			verdicts := llmjudge.ParseRubricVerdicts(sample)
			sampleScores = append(sampleScores, llmjudge.MatchRubricIDs(verdicts, e.criterion.Rubrics))
		}
		rubricScores := llmjudge.AggregateRubricSamples(rubricIDs, sampleScores)
		perInvocationRubrics = append(perInvocationRubrics, rubricScores)

		var rubricValues []*float64
		for i := range rubricScores {
			rubricValues = append(rubricValues, rubricScores[i].Score)
		}
		allRubricValues = append(allRubricValues, rubricValues...)
		score := meanScores(rubricValues)
		scores = append(scores, score)
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation: actual,
			Score:            score,
			Status:           evaluation.StatusForScore(score, e.criterion.PassThreshold()),
			RubricScores:     rubricScores,
		})
	}
	result.OverallRubricScores = llmjudge.AggregateRubricsAcrossInvocations(rubricIDs, perInvocationRubrics)
	// The overall score averages every scored rubric across invocations,
	// not the per-invocation means: an invocation where the judge scored
	// fewer rubrics weighs less.
	result.OverallScore = meanScores(allRubricValues)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.criterion.PassThreshold())
	return result, nil
}

// toolUsePayload renders the invocation's tool calls and responses as a
// transcript the judge can read.
func toolUsePayload(inv *evaluation.Invocation) string {
	var sb strings.Builder
	sb.WriteString("Tool usage:\n")
	for _, call := range inv.ToolCalls() {
		args, _ := json.Marshal(call.Args)
		fmt.Fprintf(&sb, "call %s(%s)\n", call.Name, args)
	}
	for _, resp := range toolResponses(inv) {
		out, _ := json.Marshal(resp.Response)
		fmt.Fprintf(&sb, "response %s -> %s\n", resp.Name, out)
	}
	fmt.Fprintf(&sb, "\nAgent response:\n%s\n", inv.FinalResponseText())
	return sb.String()
}

// toolResponses collects tool outputs from both the legacy fields and the
// event stream.
func toolResponses(inv *evaluation.Invocation) []*genai.FunctionResponse {
	if inv.IntermediateData == nil {
		return nil
	}
	var responses []*genai.FunctionResponse
	responses = append(responses, inv.IntermediateData.ToolResponses...)
	for i := range inv.IntermediateData.InvocationEvents {
		responses = append(responses, inv.IntermediateData.InvocationEvents[i].FunctionResponses()...)
	}
	return responses
}
