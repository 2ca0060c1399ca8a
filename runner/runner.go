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

// Package runner defines the agent collaborator interface consumed by the
// evaluation core. The agent runtime itself lives outside this module; the
// core only drives it with user content and consumes the event stream it
// emits.
package runner

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// AgentRunner executes one user turn against an agent inside a session and
// streams back the events the agent produces, in emission order. The stream
// for a turn ends when the agent's invocation completes.
type AgentRunner interface {
	Run(ctx context.Context, req *RunRequest) iter.Seq2[*Event, error]
}

// RunRequest identifies the session and carries the user turn.
type RunRequest struct {
	AppName   string
	UserID    string
	SessionID string

	UserContent *genai.Content

	// InitialState seeds session state on the first turn. Later turns must
	// pass the same session id and leave it nil.
	InitialState map[string]any
}

// RequestInterceptor observes the LLM requests an agent issues while
// handling a turn. Runners that support it let the evaluation core
// reconstruct per-agent instructions and tool declarations; runners that do
// not leave evaluators to degrade to an empty agent context.
type RequestInterceptor interface {
	// CapturedRequests returns the requests captured for one invocation id,
	// keyed by the name of the agent that issued them.
	CapturedRequests(invocationID string) map[string][]*CapturedRequest
}

// CapturedRequest is the projection of an outbound agent LLM request that
// evaluators need.
type CapturedRequest struct {
	AgentName         string
	SystemInstruction string
	Tools             []*genai.FunctionDeclaration
}
