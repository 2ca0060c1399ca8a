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
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

func TestIsFinalResponse(t *testing.T) {
	testCases := []struct {
		name  string
		event *Event
		want  bool
	}{
		{
			name:  "no content",
			event: &Event{Author: "root_agent"},
			want:  false,
		},
		{
			name: "plain text",
			event: &Event{
				Author:  "root_agent",
				Content: genai.NewContentFromText("done", genai.RoleModel),
			},
			want: true,
		},
		{
			name: "partial text",
			event: &Event{
				Author:  "root_agent",
				Content: genai.NewContentFromText("do", genai.RoleModel),
				Partial: true,
			},
			want: false,
		},
		{
			name: "user event",
			event: &Event{
				Author:  UserAuthor,
				Content: genai.NewContentFromText("hi", genai.RoleUser),
			},
			want: false,
		},
		{
			name: "function call",
			event: &Event{
				Author: "root_agent",
				Content: &genai.Content{Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: "get_time"}},
				}},
			},
			want: false,
		},
		{
			name: "text plus pending function call",
			event: &Event{
				Author: "root_agent",
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "calling a tool"},
					{FunctionCall: &genai.FunctionCall{Name: "get_time"}},
				}},
			},
			want: false,
		},
		{
			name: "thought only",
			event: &Event{
				Author: "root_agent",
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking", Thought: true},
				}},
			},
			want: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.IsFinalResponse(); got != tc.want {
				t.Errorf("IsFinalResponse() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEventText(t *testing.T) {
	event := &Event{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "hello "},
			{Text: "ignore me", Thought: true},
			{Text: "world"},
		}},
	}
	if got, want := event.Text(), "hello world"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestFunctionCalls(t *testing.T) {
	event := &Event{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "working"},
			{FunctionCall: &genai.FunctionCall{Name: "get_time", Args: map[string]any{"tz": "PST"}}},
			{FunctionCall: &genai.FunctionCall{Name: "get_weather"}},
		}},
	}
	calls := event.FunctionCalls()
	if len(calls) != 2 {
		t.Fatalf("FunctionCalls() returned %d calls, want 2", len(calls))
	}
	if calls[0].Name != "get_time" || calls[1].Name != "get_weather" {
		t.Errorf("FunctionCalls() = [%s, %s], want [get_time, get_weather]", calls[0].Name, calls[1].Name)
	}
}

func TestClone(t *testing.T) {
	original := NewEvent("inv-1", "root_agent")
	original.Content = genai.NewContentFromText("answer", genai.RoleModel)

	clone := original.Clone()
	if diff := cmp.Diff(original, clone); diff != "" {
		t.Fatalf("Clone() mismatch (-want +got):\n%s", diff)
	}

	clone.Content.Parts[0].Text = "mutated"
	if original.Content.Parts[0].Text != "answer" {
		t.Error("mutating the clone changed the original")
	}
}
