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

package runner

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// UserAuthor is the author recorded on synthetic user-turn events.
const UserAuthor = "user"

// Event is one step of an agent run: a user turn, a model response, a tool
// call, a tool response, or a thought. Events belonging to the same turn
// share an InvocationID assigned by the agent.
type Event struct {
	ID           string
	InvocationID string
	Author       string
	Time         time.Time

	Content *genai.Content

	// Partial marks an unfinished streaming chunk. Partial events are never
	// final responses.
	Partial bool
	// TurnComplete marks the event that ends the invocation.
	TurnComplete bool
}

// NewEvent creates an event with a fresh id for the given invocation.
func NewEvent(invocationID, author string) *Event {
	return &Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       author,
		Time:         time.Now(),
	}
}

// IsFinalResponse reports whether this event carries the agent's final
// response for its invocation: a complete, non-user event whose content has
// text and no pending function calls.
func (e *Event) IsFinalResponse() bool {
	if e == nil || e.Partial || e.Author == UserAuthor {
		return false
	}
	if e.Content == nil {
		return false
	}
	hasText := false
	for _, part := range e.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil || part.FunctionResponse != nil {
			return false
		}
		if part.Text != "" && !part.Thought {
			hasText = true
		}
	}
	return hasText
}

// FunctionCalls returns the function call parts of the event content.
func (e *Event) FunctionCalls() []*genai.FunctionCall {
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
func (e *Event) FunctionResponses() []*genai.FunctionResponse {
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

// Text concatenates the non-thought text parts of the event content.
func (e *Event) Text() string {
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

// Clone deep-copies the event so callers can hand it to components that may
// mutate scratch state, such as user simulators.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Content != nil {
		content := *e.Content
		content.Parts = make([]*genai.Part, len(e.Content.Parts))
		for i, part := range e.Content.Parts {
			if part == nil {
				continue
			}
			p := *part
			content.Parts[i] = &p
		}
		clone.Content = &content
	}
	return &clone
}
