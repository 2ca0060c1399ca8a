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
	"regexp"
	"time"

	"google.golang.org/genai"
)

// idPattern constrains eval set and eval case ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateID reports whether an eval set or case id is well formed.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: id %q must match [A-Za-z0-9_]+", ErrInvalidInput, id)
	}
	return nil
}

// EvalSet is a collection of eval cases, unique by id within an app
// namespace. Sets are created by users once and read-only during evaluation.
type EvalSet struct {
	ID          string     `json:"eval_set_id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	EvalCases   []EvalCase `json:"eval_cases"`
	CreatedAt   time.Time  `json:"creation_timestamp"`
}

// EvalCase is a single scripted or scenario-driven conversation used as a
// test fixture. Exactly one of Conversation and ConversationScenario must be
// set.
type EvalCase struct {
	ID        string    `json:"eval_id"`
	CreatedAt time.Time `json:"creation_timestamp"`

	// SessionInput seeds the agent session for this case.
	SessionInput *SessionInput `json:"session_input,omitempty"`

	// Conversation holds pre-recorded turns, replayed by the static user
	// simulator. Expected tool use and final responses come from here.
	Conversation []Invocation `json:"conversation,omitempty"`

	// ConversationScenario drives the LLM-backed user simulator instead of a
	// fixed conversation.
	ConversationScenario *ConversationScenario `json:"conversation_scenario,omitempty"`
}

// Validate checks the case invariants.
func (c *EvalCase) Validate() error {
	if err := ValidateID(c.ID); err != nil {
		return err
	}
	hasConversation := len(c.Conversation) > 0
	hasScenario := c.ConversationScenario != nil
	if hasConversation && hasScenario {
		return fmt.Errorf("%w: eval case %s sets both conversation and conversation_scenario", ErrInvalidInput, c.ID)
	}
	if !hasConversation && !hasScenario {
		return fmt.Errorf("%w: eval case %s sets neither conversation nor conversation_scenario", ErrInvalidInput, c.ID)
	}
	return nil
}

// SessionInput captures the initial session values for a case.
type SessionInput struct {
	AppName string         `json:"app_name,omitempty"`
	UserID  string         `json:"user_id,omitempty"`
	State   map[string]any `json:"state,omitempty"`
}

// ConversationScenario describes an LLM-driven conversation: the first user
// message is fixed, and the plan is free-form guidance for the simulator.
type ConversationScenario struct {
	StartingPrompt   string `json:"starting_prompt"`
	ConversationPlan string `json:"conversation_plan"`
}

// Invocation is one user turn plus the agent's response to it, including
// intermediate tool interactions.
type Invocation struct {
	ID            string         `json:"invocation_id,omitempty"`
	UserContent   *genai.Content `json:"user_content"`
	FinalResponse *genai.Content `json:"final_response,omitempty"`

	IntermediateData *IntermediateData `json:"intermediate_data,omitempty"`

	// AppDetails captures the projection of the agent configuration the
	// evaluators need, reconstructed from intercepted LLM requests.
	AppDetails *AppDetails `json:"app_details,omitempty"`

	CreatedAt time.Time `json:"creation_timestamp,omitzero"`
}

// IntermediateData holds everything between the user turn and the final
// response: either flat tool call/response lists, or the ordered event list
// the agent emitted.
type IntermediateData struct {
	ToolUses      []*genai.FunctionCall     `json:"tool_uses,omitempty"`
	ToolResponses []*genai.FunctionResponse `json:"tool_responses,omitempty"`

	InvocationEvents []InvocationEvent `json:"invocation_events,omitempty"`
}

// InvocationEvent is one intermediate step attributed to an agent: text,
// a function call, a function response, or a thought.
type InvocationEvent struct {
	Author  string         `json:"author"`
	Content *genai.Content `json:"content,omitempty"`
}

// Text concatenates the non-thought text parts of the event content.
func (e *InvocationEvent) Text() string {
	if e == nil || e.Content == nil {
		return ""
	}
	var out string
	for _, part := range e.Content.Parts {
		if part != nil && !part.Thought {
			out += part.Text
		}
	}
	return out
}

// FunctionCalls returns the function call parts of the event content.
func (e *InvocationEvent) FunctionCalls() []*genai.FunctionCall {
	if e == nil || e.Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the function response parts of the event content.
func (e *InvocationEvent) FunctionResponses() []*genai.FunctionResponse {
	if e == nil || e.Content == nil {
		return nil
	}
	var responses []*genai.FunctionResponse
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionResponse != nil {
			responses = append(responses, part.FunctionResponse)
		}
	}
	return responses
}

// ToolCalls returns the tool calls of the invocation in emission order,
// whichever intermediate representation the invocation carries.
func (inv *Invocation) ToolCalls() []*genai.FunctionCall {
	if inv.IntermediateData == nil {
		return nil
	}
	if len(inv.IntermediateData.ToolUses) > 0 {
		return inv.IntermediateData.ToolUses
	}
	var calls []*genai.FunctionCall
	for i := range inv.IntermediateData.InvocationEvents {
		calls = append(calls, inv.IntermediateData.InvocationEvents[i].FunctionCalls()...)
	}
	return calls
}

// UserText returns the plain text of the user turn.
func (inv *Invocation) UserText() string {
	return ContentText(inv.UserContent)
}

// FinalResponseText returns the plain text of the final response.
func (inv *Invocation) FinalResponseText() string {
	return ContentText(inv.FinalResponse)
}

// ContentText concatenates the non-thought text parts of a content block.
func ContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var out string
	for _, part := range content.Parts {
		if part != nil && !part.Thought {
			out += part.Text
		}
	}
	return out
}

// AppDetails maps agent names to the per-agent projection evaluators need.
type AppDetails struct {
	AgentDetails map[string]AgentDetails `json:"agent_details"`
}

// AgentDetails captures one agent's instructions and tool declarations.
type AgentDetails struct {
	Name             string                       `json:"name"`
	Instructions     string                       `json:"instructions,omitempty"`
	ToolDeclarations []*genai.FunctionDeclaration `json:"tool_declarations,omitempty"`
}
