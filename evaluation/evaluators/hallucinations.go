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
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/llmjudge"
)

// hallucinationEvaluator grounds agent statements against developer
// instructions, tool declarations, and tool activity. Two judge passes:
// a segmenter splits the response into sentences, then a validator labels
// each sentence against the assembled context.
type hallucinationEvaluator struct {
	criterion            evaluation.LlmAsAJudgeCriterion
	evaluateIntermediate bool
	judge                *llmjudge.Judge
}

// NewHallucinationsEvaluator builds the hallucinations_v1 evaluator.
func NewHallucinationsEvaluator(metric evaluation.EvalMetric, cfg evaluation.EvaluatorConfig) (evaluation.Evaluator, error) {
	e := &hallucinationEvaluator{}
	if c, ok := metric.EffectiveCriterion().(evaluation.HallucinationsCriterion); ok {
		e.evaluateIntermediate = c.EvaluateIntermediateNLResponses
	}
	c, err := judgeCriterion(metric)
	if err != nil {
		return nil, err
	}
	if err := requireJudge(metric, cfg); err != nil {
		return nil, err
	}
	e.criterion = c
	e.judge = llmjudge.NewJudge(cfg.Judge)
	return e, nil
}

func (e *hallucinationEvaluator) MetricType() evaluation.MetricType {
	return evaluation.MetricHallucinationsV1
}

func (e *hallucinationEvaluator) RequiresExpected() bool { return false }

func (e *hallucinationEvaluator) EvaluateInvocations(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.EvaluationResult, error) {
	result := evaluation.NewEvaluationResult()
	var scores []*float64
	for i := range params.Actual {
		actual := &params.Actual[i]
		score, err := e.evaluateInvocation(ctx, actual)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
		result.PerInvocationResults = append(result.PerInvocationResults, evaluation.PerInvocationResult{
			ActualInvocation: actual,
			Score:            score,
			Status:           evaluation.StatusForScore(score, e.criterion.PassThreshold()),
		})
	}
	result.OverallScore = meanScores(scores)
	result.OverallStatus = evaluation.StatusForScore(result.OverallScore, e.criterion.PassThreshold())
	return result, nil
}

// evaluateInvocation scores one invocation step by step: each intermediate
// natural language response (when configured) and then the final response.
// Every step is validated against a context holding only the events that
// preceded it.
func (e *hallucinationEvaluator) evaluateInvocation(ctx context.Context, inv *evaluation.Invocation) (*float64, error) {
	base := baseGroundingContext(inv)
	events := invocationEvents(inv)

	type step struct {
		text string
		// preceding counts the events emitted before this step.
		preceding int
	}
	var steps []step
	if e.evaluateIntermediate {
		for i := range events {
			if t := events[i].Text(); strings.TrimSpace(t) != "" {
				steps = append(steps, step{text: t, preceding: i})
			}
		}
	}
	if t := inv.FinalResponseText(); strings.TrimSpace(t) != "" {
		steps = append(steps, step{text: t, preceding: len(events)})
	}

	var stepScores []*float64
	for _, st := range steps {
		score, err := e.scoreText(ctx, base+renderPrecedingEvents(events[:st.preceding]), st.text)
		if err != nil {
			return nil, err
		}
		stepScores = append(stepScores, score)
	}
	return meanScores(stepScores), nil
}

// scoreText runs the segmenter pass once and the validator pass
// SampleCount() times, averaging the per-sample grounding fractions.
func (e *hallucinationEvaluator) scoreText(ctx context.Context, evalContext, text string) (*float64, error) {
	segmenterOpts := e.criterion.JudgeModelOptions
	segmenterOpts.NumSamples = 1
	segments, err := e.judge.Sample(ctx, llmjudge.BuildSegmenterPrompt(text), segmenterOpts)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}
	sentences := llmjudge.ParseSentences(segments[0])
	if len(sentences) == 0 {
		return nil, nil
	}

	prompt := llmjudge.BuildValidatorPrompt(evalContext, sentences)
	samples, err := e.judge.Sample(ctx, prompt, e.criterion.JudgeModelOptions)
	if err != nil {
		return nil, err
	}
	var sampleScores []*float64
	for _, sample := range samples {
		labels := llmjudge.ParseSentenceLabels(sample)
		if len(labels) == 0 {
			continue
		}
		var sum float64
		for _, label := range labels {
			sum += label.Score()
		}
		sampleScores = append(sampleScores, evaluation.Float(sum/float64(len(labels))))
	}
	return meanScores(sampleScores), nil
}

// baseGroundingContext assembles what the agent knew before it produced
// anything: its instructions, a JSON dump of its tool declarations, and
// the user prompt. Missing app details degrade to a context without them.
func baseGroundingContext(inv *evaluation.Invocation) string {
	var sb strings.Builder

	if inv.AppDetails == nil || len(inv.AppDetails.AgentDetails) == 0 {
		log.Warn().
			Str("invocation_id", inv.ID).
			Msg("no app details captured, grounding context omits instructions and tools")
	} else {
		names := make([]string, 0, len(inv.AppDetails.AgentDetails))
		for name := range inv.AppDetails.AgentDetails {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			agent := inv.AppDetails.AgentDetails[name]
			fmt.Fprintf(&sb, "Agent %q instructions:\n%s\n\n", name, agent.Instructions)
			if len(agent.ToolDeclarations) > 0 {
				decls, _ := json.Marshal(agent.ToolDeclarations)
				fmt.Fprintf(&sb, "Agent %q tool declarations:\n%s\n\n", name, decls)
			}
		}
	}

	fmt.Fprintf(&sb, "User message:\n%s\n\n", inv.UserText())
	return sb.String()
}

// renderPrecedingEvents serialises the events a step could see: each
// event's natural language text plus JSON dumps of its tool calls and
// tool outputs.
func renderPrecedingEvents(events []evaluation.InvocationEvent) string {
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Preceding events:\n")
	for i := range events {
		event := &events[i]
		if t := event.Text(); t != "" {
			fmt.Fprintf(&sb, "text: %s\n", t)
		}
		if calls := event.FunctionCalls(); len(calls) > 0 {
			data, _ := json.Marshal(calls)
			fmt.Fprintf(&sb, "tool_calls: %s\n", data)
		}
		if responses := event.FunctionResponses(); len(responses) > 0 {
			data, _ := json.Marshal(responses)
			fmt.Fprintf(&sb, "tool_outputs: %s\n", data)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// invocationEvents returns the invocation's event stream. Invocations
// recorded in the legacy shape carry tool activity only in ToolUses and
// ToolResponses; those collapse into one synthetic event so the final
// response is still validated against them.
func invocationEvents(inv *evaluation.Invocation) []evaluation.InvocationEvent {
	if inv.IntermediateData == nil {
		return nil
	}
	if len(inv.IntermediateData.InvocationEvents) > 0 {
		return inv.IntermediateData.InvocationEvents
	}
	var parts []*genai.Part
	for _, call := range inv.IntermediateData.ToolUses {
		parts = append(parts, &genai.Part{FunctionCall: call})
	}
	for _, resp := range inv.IntermediateData.ToolResponses {
		parts = append(parts, &genai.Part{FunctionResponse: resp})
	}
	if len(parts) == 0 {
		return nil
	}
	return []evaluation.InvocationEvent{{Content: &genai.Content{Parts: parts}}}
}
