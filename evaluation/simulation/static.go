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

	"github.com/evalkit/evalkit/evaluation"
)

// StaticSimulator replays the scripted user turns of a conversation in
// order and stops when the script runs out.
type StaticSimulator struct {
	turns []evaluation.Invocation
	next  int
}

// NewStaticSimulator creates a simulator over the case's scripted
// conversation.
func NewStaticSimulator(conversation []evaluation.Invocation) *StaticSimulator {
	return &StaticSimulator{turns: conversation}
}

// NextUserMessage implements UserSimulator.
func (s *StaticSimulator) NextUserMessage(_ context.Context, _ []evaluation.Invocation) (*NextMessage, error) {
	if s.next >= len(s.turns) {
		return &NextMessage{Status: StatusStopSignal}, nil
	}
	turn := &s.turns[s.next]
	if turn.UserContent == nil {
		return nil, fmt.Errorf("%w: scripted turn %d has no user content",
			evaluation.ErrInvalidInput, s.next)
	}
	s.next++
	return &NextMessage{Status: StatusSuccess, Content: turn.UserContent}, nil
}
