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
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/model"
)

// DefaultStopSignal is the token the simulator emits when the plan is
// complete.
const DefaultStopSignal = "</finished>"

// DefaultMaxInvocations caps simulated turns when the configuration does
// not say otherwise.
const DefaultMaxInvocations = 20

// Template placeholders the simulator prompt must carry.
const (
	stopSignalPlaceholder = "{stop_signal}"
	planPlaceholder       = "{conversation_plan}"
	historyPlaceholder    = "{conversation_history}"
)

// defaultInstructions is the built-in simulator prompt template.
const defaultInstructions = `You are role-playing a human user talking to an AI agent. Follow the
conversation plan below, one goal at a time, phrasing your messages the way
a real user would. Stay in character as the user; never answer as the
agent.

When every goal in the plan has been addressed, or the agent cannot make
further progress, reply with exactly {stop_signal} and nothing else.

Conversation plan:
{conversation_plan}

Conversation so far:
{conversation_history}

Write the user's next message.`

// LLMSimulator improvises user turns from a conversation scenario with a
// dedicated simulator model.
type LLMSimulator struct {
	llm          model.LLM
	scenario     evaluation.ConversationScenario
	instructions string
	stopSignal   string
	maxTurns     int
	modelID      string

	turns int
}

// NewLLMSimulator creates a scenario-driven simulator. Custom instructions
// must carry the stop-signal, conversation-plan, and conversation-history
// placeholders.
func NewLLMSimulator(llm model.LLM, scenario evaluation.ConversationScenario, cfg *evaluation.UserSimulatorConfig) (*LLMSimulator, error) {
	if scenario.StartingPrompt == "" {
		return nil, fmt.Errorf("%w: conversation scenario has no starting prompt", evaluation.ErrInvalidInput)
	}
	s := &LLMSimulator{
		llm:          model.Compose(llm, model.DefaultRetry()),
		scenario:     scenario,
		instructions: defaultInstructions,
		stopSignal:   DefaultStopSignal,
		maxTurns:     DefaultMaxInvocations,
	}
	if cfg != nil {
		s.modelID = cfg.Model
		switch {
		case cfg.MaxAllowedInvocations > 0:
			s.maxTurns = cfg.MaxAllowedInvocations
		case cfg.MaxAllowedInvocations < 0:
			s.maxTurns = 0 // uncapped
		}
		if cfg.CustomInstructions != "" {
			for _, placeholder := range []string{stopSignalPlaceholder, planPlaceholder, historyPlaceholder} {
				if !strings.Contains(cfg.CustomInstructions, placeholder) {
					return nil, fmt.Errorf("%w: custom simulator instructions missing %s placeholder",
						evaluation.ErrInvalidInput, placeholder)
				}
			}
			s.instructions = cfg.CustomInstructions
		}
	}
	return s, nil
}

// NextUserMessage implements UserSimulator. The first turn is the
// scenario's starting prompt verbatim; later turns come from the simulator
// model.
func (s *LLMSimulator) NextUserMessage(ctx context.Context, history []evaluation.Invocation) (*NextMessage, error) {
	if s.maxTurns > 0 && s.turns >= s.maxTurns {
		return &NextMessage{Status: StatusTurnLimitReached}, nil
	}
	if s.turns == 0 {
		s.turns++
		return &NextMessage{
			Status:  StatusSuccess,
			Content: genai.NewContentFromText(s.scenario.StartingPrompt, genai.RoleUser),
		}, nil
	}

	text, err := s.generate(ctx, history)
	if err != nil {
		return nil, err
	}
	// The stop signal check is case insensitive: models regularly change
	// the casing of literal tokens they were asked to emit.
	if strings.Contains(strings.ToLower(text), strings.ToLower(s.stopSignal)) {
		return &NextMessage{Status: StatusStopSignal}, nil
	}
	s.turns++
	return &NextMessage{
		Status:  StatusSuccess,
		Content: genai.NewContentFromText(text, genai.RoleUser),
	}, nil
}

func (s *LLMSimulator) generate(ctx context.Context, history []evaluation.Invocation) (string, error) {
	prompt := strings.NewReplacer(
		stopSignalPlaceholder, s.stopSignal,
		planPlaceholder, s.scenario.ConversationPlan,
		historyPlaceholder, renderDialogue(history),
	).Replace(s.instructions)

	req := model.NewUserRequest(prompt, nil)
	req.Model = s.modelID

	var text string
	for resp, err := range s.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("user simulator generation failed: %w", err)
		}
		if t := resp.Text(); t != "" {
			text = t
		}
	}
	// An empty simulated turn would wedge the conversation, so it is fatal
	// for the case rather than a skippable sample.
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: user simulator returned an empty message", evaluation.ErrInferenceFailure)
	}
	return strings.TrimSpace(text), nil
}

// renderDialogue rewrites the invocations as a plain-text dialogue. Tool
// activity and thoughts are dropped; the simulator only sees what a real
// user would.
func renderDialogue(history []evaluation.Invocation) string {
	if len(history) == 0 {
		return "(conversation start)"
	}
	var sb strings.Builder
	for i := range history {
		fmt.Fprintf(&sb, "user: %s\n", history[i].UserText())
		fmt.Fprintf(&sb, "agent: %s\n", history[i].FinalResponseText())
	}
	return sb.String()
}
