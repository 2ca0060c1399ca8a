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

// Package testutil provides fakes for the evaluation core's collaborators:
// a scripted LLM and a scripted agent runner.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/model"
	"github.com/evalkit/evalkit/runner"
)

// FakeLLM replays scripted text responses in order and records every
// request it receives. Err, when set, fails every call instead.
type FakeLLM struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	Requests []*model.Request
	next     int
}

var errScriptExhausted = errors.New("fake llm: no responses left")

// Name implements model.LLM.
func (f *FakeLLM) Name() string { return "fake-llm" }

// GenerateContent implements model.LLM.
func (f *FakeLLM) GenerateContent(_ context.Context, req *model.Request, _ bool) model.ResponseStream {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	err := f.Err
	var text string
	if err == nil {
		if f.next >= len(f.Responses) {
			err = errScriptExhausted
		} else {
			text = f.Responses[f.next]
			f.next++
		}
	}
	f.mu.Unlock()

	return func(yield func(*model.Response, error) bool) {
		if err != nil {
			yield(nil, err)
			return
		}
		yield(&model.Response{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			TurnComplete: true,
		}, nil)
	}
}

// Turn scripts one agent turn for the ScriptedRunner: the events the agent
// emits in response to one user message.
type Turn struct {
	InvocationID string
	Events       []*runner.Event
	Err          error
}

// ScriptedRunner replays scripted turns in order. It also implements
// runner.RequestInterceptor when Captured is populated.
type ScriptedRunner struct {
	mu    sync.Mutex
	Turns []Turn
	next  int

	// Captured maps invocation id to agent name to captured requests.
	Captured map[string]map[string][]*runner.CapturedRequest

	// Requests records every run request, in order.
	Requests []*runner.RunRequest
}

// Run implements runner.AgentRunner.
func (s *ScriptedRunner) Run(_ context.Context, req *runner.RunRequest) iter.Seq2[*runner.Event, error] {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	var turn *Turn
	var err error
	if s.next >= len(s.Turns) {
		err = fmt.Errorf("scripted runner: no turns left (turn %d)", s.next)
	} else {
		turn = &s.Turns[s.next]
		s.next++
	}
	s.mu.Unlock()

	return func(yield func(*runner.Event, error) bool) {
		if err != nil {
			yield(nil, err)
			return
		}
		if turn.Err != nil {
			yield(nil, turn.Err)
			return
		}
		for _, event := range turn.Events {
			if !yield(event, nil) {
				return
			}
		}
	}
}

// CapturedRequests implements runner.RequestInterceptor.
func (s *ScriptedRunner) CapturedRequests(invocationID string) map[string][]*runner.CapturedRequest {
	return s.Captured[invocationID]
}

// TextEvent builds a final-response text event.
func TextEvent(invocationID, author, text string) *runner.Event {
	event := runner.NewEvent(invocationID, author)
	event.Content = genai.NewContentFromText(text, genai.RoleModel)
	event.TurnComplete = true
	return event
}

// ToolCallEvent builds an intermediate event carrying one function call.
func ToolCallEvent(invocationID, author, tool string, args map[string]any) *runner.Event {
	event := runner.NewEvent(invocationID, author)
	event.Content = &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: tool, Args: args}}},
	}
	return event
}

// ToolResponseEvent builds an intermediate event carrying one function
// response.
func ToolResponseEvent(invocationID, author, tool string, response map[string]any) *runner.Event {
	event := runner.NewEvent(invocationID, author)
	event.Content = &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{Name: tool, Response: response}}},
	}
	return event
}
