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

package simulation

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/internal/testutil"
)

func scriptedTurn(text string) evaluation.Invocation {
	return evaluation.Invocation{
		UserContent: genai.NewContentFromText(text, genai.RoleUser),
	}
}

func TestStaticSimulatorReplaysScript(t *testing.T) {
	sim := NewStaticSimulator([]evaluation.Invocation{
		scriptedTurn("first message"),
		scriptedTurn("second message"),
	})

	// Two scripted turns, then the stop signal; exactly two messages.
	first, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(1) failed: %v", err)
	}
	if first.Status != StatusSuccess || evaluation.ContentText(first.Content) != "first message" {
		t.Errorf("turn 1 = %v %q", first.Status, evaluation.ContentText(first.Content))
	}

	second, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(2) failed: %v", err)
	}
	if second.Status != StatusSuccess || evaluation.ContentText(second.Content) != "second message" {
		t.Errorf("turn 2 = %v %q", second.Status, evaluation.ContentText(second.Content))
	}

	done, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(3) failed: %v", err)
	}
	if done.Status != StatusStopSignal {
		t.Errorf("turn 3 status = %v, want %v", done.Status, StatusStopSignal)
	}
	if done.Content != nil {
		t.Errorf("turn 3 content = %v, want nil", done.Content)
	}
}

func TestStaticSimulatorRejectsTurnWithoutUserContent(t *testing.T) {
	sim := NewStaticSimulator([]evaluation.Invocation{{}})
	_, err := sim.NextUserMessage(t.Context(), nil)
	if !errors.Is(err, evaluation.ErrInvalidInput) {
		t.Errorf("NextUserMessage() = %v, want ErrInvalidInput", err)
	}
}

func TestLLMSimulatorFirstTurnIsStartingPrompt(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{"should not be used"}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt:   "I want to book a flight to Tokyo.",
		ConversationPlan: "Book a flight, then ask about baggage.",
	}, nil)
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	msg, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage() failed: %v", err)
	}
	if msg.Status != StatusSuccess {
		t.Fatalf("status = %v, want SUCCESS", msg.Status)
	}
	if got := evaluation.ContentText(msg.Content); got != "I want to book a flight to Tokyo." {
		t.Errorf("first turn = %q, want the starting prompt verbatim", got)
	}
	if len(llm.Requests) != 0 {
		t.Errorf("first turn hit the model %d times, want 0", len(llm.Requests))
	}
}

func TestLLMSimulatorGeneratesLaterTurns(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{"How much is checked baggage?"}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt:   "I want to book a flight.",
		ConversationPlan: "Book a flight, then ask about baggage.",
	}, nil)
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	if _, err := sim.NextUserMessage(t.Context(), nil); err != nil {
		t.Fatalf("NextUserMessage(1) failed: %v", err)
	}

	history := []evaluation.Invocation{{
		UserContent:   genai.NewContentFromText("I want to book a flight.", genai.RoleUser),
		FinalResponse: genai.NewContentFromText("Booked for Monday.", genai.RoleModel),
	}}
	msg, err := sim.NextUserMessage(t.Context(), history)
	if err != nil {
		t.Fatalf("NextUserMessage(2) failed: %v", err)
	}
	if got := evaluation.ContentText(msg.Content); got != "How much is checked baggage?" {
		t.Errorf("second turn = %q", got)
	}

	prompt := llm.Requests[0].Contents[0].Parts[0].Text
	for _, want := range []string{
		"Book a flight, then ask about baggage.",
		"user: I want to book a flight.",
		"agent: Booked for Monday.",
		DefaultStopSignal,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("simulator prompt missing %q", want)
		}
	}
}

func TestLLMSimulatorDetectsStopSignal(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{DefaultStopSignal}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt: "hello",
	}, nil)
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	if _, err := sim.NextUserMessage(t.Context(), nil); err != nil {
		t.Fatalf("NextUserMessage(1) failed: %v", err)
	}
	msg, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(2) failed: %v", err)
	}
	if msg.Status != StatusStopSignal {
		t.Errorf("status = %v, want %v", msg.Status, StatusStopSignal)
	}
}

func TestLLMSimulatorStopSignalIsCaseInsensitive(t *testing.T) {
	// An upper-cased stop token must still end the conversation instead of
	// being forwarded to the agent as a user message.
	llm := &testutil.FakeLLM{Responses: []string{strings.ToUpper(DefaultStopSignal)}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt: "hello",
	}, nil)
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	if _, err := sim.NextUserMessage(t.Context(), nil); err != nil {
		t.Fatalf("NextUserMessage(1) failed: %v", err)
	}
	msg, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(2) failed: %v", err)
	}
	if msg.Status != StatusStopSignal {
		t.Errorf("status = %v, want %v", msg.Status, StatusStopSignal)
	}
	if msg.Content != nil {
		t.Errorf("stop turn carried user content %v, want none", msg.Content)
	}
}

func TestLLMSimulatorTurnLimit(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{"turn two"}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt: "hello",
	}, &evaluation.UserSimulatorConfig{MaxAllowedInvocations: 2})
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		msg, err := sim.NextUserMessage(t.Context(), nil)
		if err != nil {
			t.Fatalf("NextUserMessage(%d) failed: %v", i+1, err)
		}
		if msg.Status != StatusSuccess {
			t.Fatalf("turn %d status = %v, want SUCCESS", i+1, msg.Status)
		}
	}

	msg, err := sim.NextUserMessage(t.Context(), nil)
	if err != nil {
		t.Fatalf("NextUserMessage(3) failed: %v", err)
	}
	if msg.Status != StatusTurnLimitReached {
		t.Errorf("turn 3 status = %v, want %v", msg.Status, StatusTurnLimitReached)
	}
}

func TestLLMSimulatorEmptyResponseIsFatal(t *testing.T) {
	llm := &testutil.FakeLLM{Responses: []string{"   "}}
	sim, err := NewLLMSimulator(llm, evaluation.ConversationScenario{
		StartingPrompt: "hello",
	}, nil)
	if err != nil {
		t.Fatalf("NewLLMSimulator() failed: %v", err)
	}

	if _, err := sim.NextUserMessage(t.Context(), nil); err != nil {
		t.Fatalf("NextUserMessage(1) failed: %v", err)
	}
	_, err = sim.NextUserMessage(t.Context(), nil)
	if !errors.Is(err, evaluation.ErrInferenceFailure) {
		t.Errorf("NextUserMessage(2) = %v, want ErrInferenceFailure", err)
	}
}

func TestLLMSimulatorValidatesCustomInstructions(t *testing.T) {
	llm := &testutil.FakeLLM{}
	scenario := evaluation.ConversationScenario{StartingPrompt: "hello"}

	_, err := NewLLMSimulator(llm, scenario, &evaluation.UserSimulatorConfig{
		CustomInstructions: "no placeholders at all",
	})
	if !errors.Is(err, evaluation.ErrInvalidInput) {
		t.Errorf("NewLLMSimulator(bad instructions) = %v, want ErrInvalidInput", err)
	}

	_, err = NewLLMSimulator(llm, scenario, &evaluation.UserSimulatorConfig{
		CustomInstructions: "plan {conversation_plan} history {conversation_history} stop {stop_signal}",
	})
	if err != nil {
		t.Errorf("NewLLMSimulator(valid instructions) failed: %v", err)
	}
}

func TestLLMSimulatorRequiresStartingPrompt(t *testing.T) {
	llm := &testutil.FakeLLM{}
	_, err := NewLLMSimulator(llm, evaluation.ConversationScenario{}, nil)
	if !errors.Is(err, evaluation.ErrInvalidInput) {
		t.Errorf("NewLLMSimulator(no starting prompt) = %v, want ErrInvalidInput", err)
	}
}
