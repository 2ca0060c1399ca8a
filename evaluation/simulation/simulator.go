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

// Package simulation generates the user side of eval conversations: a
// static simulator replays scripted turns, an LLM-backed one improvises
// turns from a conversation plan.
package simulation

import (
	"context"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
)

// Status reports why a simulator did or did not produce a next user turn.
type Status string

const (
	// StatusSuccess means Content carries the next user message.
	StatusSuccess Status = "SUCCESS"
	// StatusTurnLimitReached means the configured invocation cap was hit.
	StatusTurnLimitReached Status = "TURN_LIMIT_REACHED"
	// StatusStopSignal means the simulator decided the conversation is over.
	StatusStopSignal Status = "STOP_SIGNAL_DETECTED"
	// StatusNoMessage means the simulator had nothing left to say.
	StatusNoMessage Status = "NO_MESSAGE_GENERATED"
)

// NextMessage is one simulator step. Content is set only on SUCCESS.
type NextMessage struct {
	Status  Status
	Content *genai.Content
}

// UserSimulator produces the next user turn given the conversation so far.
// Simulators are stateful and scoped to one case run; they are not safe for
// concurrent use.
type UserSimulator interface {
	NextUserMessage(ctx context.Context, history []evaluation.Invocation) (*NextMessage, error)
}
