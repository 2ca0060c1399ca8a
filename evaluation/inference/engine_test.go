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

package inference

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/internal/testutil"
	"github.com/evalkit/evalkit/runner"
	"github.com/evalkit/evalkit/session"
)

func scriptedCase(id string, userTexts ...string) evaluation.EvalCase {
	evalCase := evaluation.EvalCase{ID: id}
	for _, text := range userTexts {
		evalCase.Conversation = append(evalCase.Conversation, evaluation.Invocation{
			UserContent: genai.NewContentFromText(text, genai.RoleUser),
		})
	}
	return evalCase
}

func singleCaseSet(evalCase evaluation.EvalCase) *evaluation.EvalSet {
	return &evaluation.EvalSet{ID: "set_1", EvalCases: []evaluation.EvalCase{evalCase}}
}

func TestPerformInferenceScriptedConversation(t *testing.T) {
	agent := &testutil.ScriptedRunner{Turns: []testutil.Turn{
		{Events: []*runner.Event{
			testutil.ToolCallEvent("inv1", "agent", "get_time", map[string]any{"timezone": "PST"}),
			testutil.TextEvent("inv1", "agent", "It is noon."),
		}},
		{Events: []*runner.Event{
			testutil.TextEvent("inv2", "agent", "Goodbye."),
		}},
	}}
	engine := New(agent, session.NewInMemoryService(), nil)

	results, err := engine.PerformInference(t.Context(),
		singleCaseSet(scriptedCase("case_1", "what time is it?", "thanks, bye")),
		Options{AppName: "clock"},
	)
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	result := results[0]
	if result.Status != evaluation.InferenceStatusSuccess {
		t.Fatalf("status = %v (%s), want SUCCESS", result.Status, result.ErrorMessage)
	}
	if result.EvalSetID != "set_1" || result.EvalCaseID != "case_1" {
		t.Errorf("result ids = %s/%s", result.EvalSetID, result.EvalCaseID)
	}
	if result.UserID != DefaultUserID {
		t.Errorf("user id = %q, want %q", result.UserID, DefaultUserID)
	}
	if len(result.Inferences) != 1 {
		t.Fatalf("got %d runs, want 1", len(result.Inferences))
	}

	invocations := result.Inferences[0]
	if len(invocations) != 2 {
		t.Fatalf("got %d invocations, want 2", len(invocations))
	}
	if got := invocations[0].UserText(); got != "what time is it?" {
		t.Errorf("invocation 0 user text = %q", got)
	}
	if got := invocations[0].FinalResponseText(); got != "It is noon." {
		t.Errorf("invocation 0 final response = %q", got)
	}
	calls := invocations[0].ToolCalls()
	if len(calls) != 1 || calls[0].Name != "get_time" {
		t.Errorf("invocation 0 tool calls = %+v", calls)
	}
	if got := invocations[1].FinalResponseText(); got != "Goodbye." {
		t.Errorf("invocation 1 final response = %q", got)
	}

	// Each scripted turn saw the eval-prefixed session of the same run.
	if len(agent.Requests) != 2 {
		t.Fatalf("agent saw %d requests, want 2", len(agent.Requests))
	}
	if !session.IsEvalSessionID(agent.Requests[0].SessionID) {
		t.Errorf("session id %q lacks the eval prefix", agent.Requests[0].SessionID)
	}
	if agent.Requests[0].SessionID != agent.Requests[1].SessionID {
		t.Errorf("turns ran in different sessions: %q vs %q",
			agent.Requests[0].SessionID, agent.Requests[1].SessionID)
	}
}

func TestPerformInferenceCapturesAppDetails(t *testing.T) {
	agent := &testutil.ScriptedRunner{
		Turns: []testutil.Turn{
			{Events: []*runner.Event{testutil.TextEvent("inv1", "agent", "done")}},
		},
		Captured: map[string]map[string][]*runner.CapturedRequest{
			"inv1": {
				"clock_agent": {{
					AgentName:         "clock_agent",
					SystemInstruction: "Tell the time.",
					Tools:             []*genai.FunctionDeclaration{{Name: "get_time"}},
				}},
			},
		},
	}
	engine := New(agent, session.NewInMemoryService(), nil)

	results, err := engine.PerformInference(t.Context(),
		singleCaseSet(scriptedCase("case_1", "hi")),
		Options{AppName: "clock"},
	)
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}

	inv := results[0].Inferences[0][0]
	if inv.AppDetails == nil {
		t.Fatal("invocation has no app details")
	}
	agentDetails, ok := inv.AppDetails.AgentDetails["clock_agent"]
	if !ok {
		t.Fatalf("agent details = %+v, want clock_agent", inv.AppDetails.AgentDetails)
	}
	if agentDetails.Instructions != "Tell the time." {
		t.Errorf("instructions = %q", agentDetails.Instructions)
	}
	if len(agentDetails.ToolDeclarations) != 1 || agentDetails.ToolDeclarations[0].Name != "get_time" {
		t.Errorf("tool declarations = %+v", agentDetails.ToolDeclarations)
	}
}

func TestPerformInferenceRepeatsRuns(t *testing.T) {
	agent := &testutil.ScriptedRunner{Turns: []testutil.Turn{
		{Events: []*runner.Event{testutil.TextEvent("inv1", "agent", "first run")}},
		{Events: []*runner.Event{testutil.TextEvent("inv2", "agent", "second run")}},
	}}
	engine := New(agent, session.NewInMemoryService(), nil)

	results, err := engine.PerformInference(t.Context(),
		singleCaseSet(scriptedCase("case_1", "hi")),
		Options{AppName: "app", Config: evaluation.InferenceConfig{NumRuns: 2, Parallelism: 1}},
	)
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}
	if len(results[0].Inferences) != 2 {
		t.Fatalf("got %d runs, want 2", len(results[0].Inferences))
	}
	if got := results[0].Inferences[1][0].FinalResponseText(); got != "second run" {
		t.Errorf("run 2 response = %q", got)
	}
}

func TestPerformInferenceCapturesRunFailures(t *testing.T) {
	// The first run fails mid-turn, the second succeeds. Both are
	// recorded: the failure in the error message, the success in the
	// inferences.
	agent := &testutil.ScriptedRunner{Turns: []testutil.Turn{
		{Err: errors.New("model quota exceeded")},
		{Events: []*runner.Event{testutil.TextEvent("inv1", "agent", "recovered")}},
	}}
	engine := New(agent, session.NewInMemoryService(), nil)

	results, err := engine.PerformInference(t.Context(),
		singleCaseSet(scriptedCase("case_1", "hi")),
		Options{AppName: "app", Config: evaluation.InferenceConfig{NumRuns: 2, Parallelism: 1}},
	)
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}

	result := results[0]
	if result.Status != evaluation.InferenceStatusFailure {
		t.Errorf("status = %v, want FAILURE", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "model quota exceeded") {
		t.Errorf("error message = %q, want the run error", result.ErrorMessage)
	}
	if len(result.Inferences) != 1 {
		t.Fatalf("got %d successful runs, want 1", len(result.Inferences))
	}
	if got := result.Inferences[0][0].FinalResponseText(); got != "recovered" {
		t.Errorf("surviving run response = %q", got)
	}
}

func TestPerformInferenceInvalidCase(t *testing.T) {
	// A case with both a conversation and a scenario fails validation.
	evalCase := scriptedCase("case_1", "hi")
	evalCase.ConversationScenario = &evaluation.ConversationScenario{StartingPrompt: "hi"}

	engine := New(&testutil.ScriptedRunner{}, session.NewInMemoryService(), nil)
	results, err := engine.PerformInference(t.Context(), singleCaseSet(evalCase), Options{AppName: "app"})
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}
	if results[0].Status != evaluation.InferenceStatusFailure {
		t.Errorf("status = %v, want FAILURE", results[0].Status)
	}
}

func TestPerformInferenceScenarioWithoutSimulatorModel(t *testing.T) {
	evalCase := evaluation.EvalCase{
		ID:                   "case_1",
		ConversationScenario: &evaluation.ConversationScenario{StartingPrompt: "hi"},
	}
	engine := New(&testutil.ScriptedRunner{}, session.NewInMemoryService(), nil)

	results, err := engine.PerformInference(t.Context(), singleCaseSet(evalCase), Options{AppName: "app"})
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}
	if results[0].Status != evaluation.InferenceStatusFailure {
		t.Errorf("status = %v, want FAILURE", results[0].Status)
	}
	if !strings.Contains(results[0].ErrorMessage, "simulator") {
		t.Errorf("error message = %q, want simulator complaint", results[0].ErrorMessage)
	}
}

func TestPerformInferenceScenarioDriven(t *testing.T) {
	// The simulator model opens with the starting prompt, then produces
	// one generated turn, then the stop signal.
	simulatorLLM := &testutil.FakeLLM{Responses: []string{
		"and a window seat please",
		"</finished>",
	}}
	agent := &testutil.ScriptedRunner{Turns: []testutil.Turn{
		{Events: []*runner.Event{testutil.TextEvent("inv1", "agent", "Where to?")}},
		{Events: []*runner.Event{testutil.TextEvent("inv2", "agent", "Booked.")}},
	}}
	engine := New(agent, session.NewInMemoryService(), simulatorLLM)

	evalCase := evaluation.EvalCase{
		ID: "case_1",
		ConversationScenario: &evaluation.ConversationScenario{
			StartingPrompt:   "Book me a flight.",
			ConversationPlan: "Book a flight with a window seat.",
		},
	}
	results, err := engine.PerformInference(t.Context(), singleCaseSet(evalCase), Options{AppName: "travel"})
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}

	result := results[0]
	if result.Status != evaluation.InferenceStatusSuccess {
		t.Fatalf("status = %v (%s), want SUCCESS", result.Status, result.ErrorMessage)
	}
	invocations := result.Inferences[0]
	if len(invocations) != 2 {
		t.Fatalf("got %d invocations, want 2", len(invocations))
	}
	if got := invocations[0].UserText(); got != "Book me a flight." {
		t.Errorf("turn 1 user text = %q, want the starting prompt", got)
	}
	if got := invocations[1].UserText(); got != "and a window seat please" {
		t.Errorf("turn 2 user text = %q", got)
	}
}

func TestPerformInferenceSessionCleanup(t *testing.T) {
	sessions := session.NewInMemoryService()
	agent := &testutil.ScriptedRunner{Turns: []testutil.Turn{
		{Events: []*runner.Event{testutil.TextEvent("inv1", "agent", "done")}},
	}}
	engine := New(agent, sessions, nil)

	results, err := engine.PerformInference(t.Context(),
		singleCaseSet(scriptedCase("case_1", "hi")),
		Options{AppName: "app"},
	)
	if err != nil {
		t.Fatalf("PerformInference() failed: %v", err)
	}

	sessionID := agent.Requests[0].SessionID
	if _, err := sessions.Get(t.Context(), "app", results[0].UserID, sessionID); err == nil {
		t.Error("eval session still exists after the run, want it deleted")
	}
}

// gatedRunner answers immediately except for conversations whose user text
// mentions "slow", which wait for the gate.
type gatedRunner struct {
	gate <-chan struct{}
}

func (r *gatedRunner) Run(ctx context.Context, req *runner.RunRequest) iter.Seq2[*runner.Event, error] {
	return func(yield func(*runner.Event, error) bool) {
		if strings.Contains(req.UserContent.Parts[0].Text, "slow") {
			select {
			case <-r.gate:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-time.After(5 * time.Second):
				yield(nil, errors.New("gate never released"))
				return
			}
		}
		yield(testutil.TextEvent("inv1", "agent", "answered"), nil)
	}
}

func TestPerformInferenceStreamYieldsAsCasesComplete(t *testing.T) {
	gate := make(chan struct{})
	engine := New(&gatedRunner{gate: gate}, session.NewInMemoryService(), nil)

	evalSet := &evaluation.EvalSet{
		ID: "set",
		EvalCases: []evaluation.EvalCase{
			scriptedCase("fast_case", "quick question"),
			scriptedCase("slow_case", "slow question"),
		},
	}

	// The slow case only unblocks after the fast case's result has been
	// yielded, so a stream that buffers until the whole set finishes
	// leaves the slow case to time out.
	var order []string
	for result, err := range engine.PerformInferenceStream(t.Context(), evalSet, Options{AppName: "app"}) {
		if err != nil {
			t.Fatalf("PerformInferenceStream() failed: %v", err)
		}
		if len(order) == 0 {
			close(gate)
		}
		order = append(order, result.EvalCaseID)
		if result.Status != evaluation.InferenceStatusSuccess {
			t.Errorf("case %s status = %v, want SUCCESS", result.EvalCaseID, result.Status)
		}
	}

	if len(order) != 2 {
		t.Fatalf("streamed %d results, want 2", len(order))
	}
	if order[0] != "fast_case" {
		t.Errorf("first streamed case = %q, want fast_case", order[0])
	}
}
