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

package evaluators

import (
	"google.golang.org/genai"

	"github.com/evalkit/evalkit/evaluation"
)

// invocationWithTools builds an invocation carrying the given tool calls.
func invocationWithTools(calls ...*genai.FunctionCall) evaluation.Invocation {
	return evaluation.Invocation{
		ID:               "inv",
		UserContent:      genai.NewContentFromText("do the thing", genai.RoleUser),
		IntermediateData: &evaluation.IntermediateData{ToolUses: calls},
	}
}

// invocationWithResponse builds an invocation carrying a user turn and a
// final text response.
func invocationWithResponse(userText, responseText string) evaluation.Invocation {
	inv := evaluation.Invocation{
		ID:          "inv",
		UserContent: genai.NewContentFromText(userText, genai.RoleUser),
	}
	if responseText != "" {
		inv.FinalResponse = genai.NewContentFromText(responseText, genai.RoleModel)
	}
	return inv
}

func call(name string, args map[string]any) *genai.FunctionCall {
	return &genai.FunctionCall{Name: name, Args: args}
}

func scoreOf(result *evaluation.EvaluationResult) float64 {
	if result.OverallScore == nil {
		return -1
	}
	return *result.OverallScore
}
