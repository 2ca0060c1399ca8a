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
	"time"

	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/runner"
)

// groupEvents converts one turn's event stream into invocations, grouped
// by invocation id in emission order. The user content belongs to the
// first invocation of the turn.
func groupEvents(userContent *genai.Content, events []*runner.Event, interceptor runner.RequestInterceptor) []evaluation.Invocation {
	var order []string
	grouped := make(map[string][]*runner.Event)
	for _, event := range events {
		if event.Author == runner.UserAuthor {
			continue
		}
		if _, ok := grouped[event.InvocationID]; !ok {
			order = append(order, event.InvocationID)
		}
		grouped[event.InvocationID] = append(grouped[event.InvocationID], event)
	}

	invocations := make([]evaluation.Invocation, 0, len(order))
	for i, invocationID := range order {
		inv := evaluation.Invocation{
			ID:        invocationID,
			CreatedAt: time.Now().UTC(),
		}
		if i == 0 {
			inv.UserContent = userContent
		}
		for _, event := range grouped[invocationID] {
			if event.IsFinalResponse() {
				inv.FinalResponse = event.Content
				continue
			}
			if event.Content == nil {
				continue
			}
			if inv.IntermediateData == nil {
				inv.IntermediateData = &evaluation.IntermediateData{}
			}
			inv.IntermediateData.InvocationEvents = append(inv.IntermediateData.InvocationEvents,
				evaluation.InvocationEvent{Author: event.Author, Content: event.Content})
		}
		inv.AppDetails = capturedAppDetails(interceptor, invocationID)
		invocations = append(invocations, inv)
	}
	return invocations
}

// capturedAppDetails reconstructs the per-agent projection from the
// requests the runner intercepted for one invocation. Nil when the runner
// does not intercept or captured nothing.
func capturedAppDetails(interceptor runner.RequestInterceptor, invocationID string) *evaluation.AppDetails {
	if interceptor == nil {
		return nil
	}
	captured := interceptor.CapturedRequests(invocationID)
	if len(captured) == 0 {
		return nil
	}
	details := &evaluation.AppDetails{AgentDetails: make(map[string]evaluation.AgentDetails, len(captured))}
	for agentName, requests := range captured {
		agent := evaluation.AgentDetails{Name: agentName}
		for _, req := range requests {
			if agent.Instructions == "" {
				agent.Instructions = req.SystemInstruction
			}
			agent.ToolDeclarations = mergeDeclarations(agent.ToolDeclarations, req.Tools)
		}
		details.AgentDetails[agentName] = agent
	}
	return details
}

// mergeDeclarations unions tool declarations by name, keeping first seen.
func mergeDeclarations(existing, incoming []*genai.FunctionDeclaration) []*genai.FunctionDeclaration {
	seen := make(map[string]bool, len(existing))
	for _, decl := range existing {
		seen[decl.Name] = true
	}
	for _, decl := range incoming {
		if decl == nil || seen[decl.Name] {
			continue
		}
		seen[decl.Name] = true
		existing = append(existing, decl)
	}
	return existing
}
