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
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// MarshalEvalSet serialises an eval set to the current schema.
func MarshalEvalSet(set *EvalSet) ([]byte, error) {
	return json.MarshalIndent(set, "", "  ")
}

// UnmarshalEvalSet parses an eval set from either the current schema or the
// legacy list schema, converting transparently on read.
func UnmarshalEvalSet(data []byte) (*EvalSet, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return convertLegacyEvalSet(data)
	}

	var set EvalSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: parse eval set: %v", ErrInvalidInput, err)
	}
	for i := range set.EvalCases {
		if err := set.EvalCases[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &set, nil
}

// MarshalEvalSetResult serialises a result rollup.
func MarshalEvalSetResult(result *EvalSetResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// UnmarshalEvalSetResult parses a result rollup, tolerating the legacy
// double-encoded form where the file is a JSON string whose contents are the
// real JSON object.
func UnmarshalEvalSetResult(data []byte) (*EvalSetResult, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("%w: parse double-encoded result: %v", ErrInvalidInput, err)
		}
		data = []byte(inner)
	}

	var result EvalSetResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: parse eval set result: %v", ErrInvalidInput, err)
	}
	return &result, nil
}

// Legacy eval-set schema: a JSON list of named cases, each holding flat
// query/tool-use/reference rows and an optional initial session.

type legacyEvalCase struct {
	Name           string              `json:"name"`
	Data           []legacyDataRow     `json:"data"`
	InitialSession *legacySessionInput `json:"initial_session,omitempty"`
}

type legacyDataRow struct {
	Query           string            `json:"query"`
	ExpectedToolUse []legacyToolUse   `json:"expected_tool_use,omitempty"`
	Intermediate    []legacyAgentText `json:"expected_intermediate_agent_responses,omitempty"`
	Reference       string            `json:"reference,omitempty"`
}

type legacyToolUse struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
}

type legacyAgentText struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type legacySessionInput struct {
	AppName string         `json:"app_name,omitempty"`
	UserID  string         `json:"user_id,omitempty"`
	State   map[string]any `json:"state,omitempty"`
}

func convertLegacyEvalSet(data []byte) (*EvalSet, error) {
	var legacy []legacyEvalCase
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: parse legacy eval set: %v", ErrInvalidInput, err)
	}

	set := &EvalSet{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	for _, lc := range legacy {
		evalCase := EvalCase{
			ID:        lc.Name,
			CreatedAt: set.CreatedAt,
		}
		if lc.InitialSession != nil {
			evalCase.SessionInput = &SessionInput{
				AppName: lc.InitialSession.AppName,
				UserID:  lc.InitialSession.UserID,
				State:   lc.InitialSession.State,
			}
		}
		for _, row := range lc.Data {
			evalCase.Conversation = append(evalCase.Conversation, convertLegacyRow(row))
		}
		set.EvalCases = append(set.EvalCases, evalCase)
	}
	return set, nil
}

func convertLegacyRow(row legacyDataRow) Invocation {
	inv := Invocation{
		ID:          uuid.NewString(),
		UserContent: genai.NewContentFromText(row.Query, genai.RoleUser),
	}
	if row.Reference != "" {
		inv.FinalResponse = genai.NewContentFromText(row.Reference, genai.RoleModel)
	}
	if len(row.ExpectedToolUse) > 0 || len(row.Intermediate) > 0 {
		inv.IntermediateData = &IntermediateData{}
		for _, tu := range row.ExpectedToolUse {
			inv.IntermediateData.ToolUses = append(inv.IntermediateData.ToolUses, &genai.FunctionCall{
				Name: tu.ToolName,
				Args: tu.ToolInput,
			})
		}
		for _, ir := range row.Intermediate {
			inv.IntermediateData.InvocationEvents = append(inv.IntermediateData.InvocationEvents, InvocationEvent{
				Author:  ir.Author,
				Content: genai.NewContentFromText(ir.Text, genai.RoleModel),
			})
		}
	}
	return inv
}
