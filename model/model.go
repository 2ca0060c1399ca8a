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

// Package model defines the LLM collaborator interface consumed by the
// evaluation core, along with request middleware such as retry policies.
package model

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// LLM generates content from a language model. The evaluation core uses it
// for judge calls and for the LLM-backed user simulator; the underlying
// transport is provided by the embedding application.
type LLM interface {
	// Name returns the model identifier, e.g. "gemini-2.5-flash".
	Name() string

	// GenerateContent sends a request to the model. When stream is false the
	// returned sequence yields a single complete response.
	GenerateContent(ctx context.Context, req *Request, stream bool) ResponseStream
}

// Request is the input to an LLM's generate call.
type Request struct {
	// Model overrides the LLM's default model identifier when non-empty.
	Model string

	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// ResponseStream is the output of an LLM's generate call.
type ResponseStream = iter.Seq2[*Response, error]

// Response holds the first candidate response from the model.
type Response struct {
	Content *genai.Content

	// Partial indicates the content is part of an unfinished stream.
	Partial bool
	// TurnComplete indicates the model finished the turn.
	TurnComplete bool

	ErrorCode    int
	ErrorMessage string
}

// Text concatenates the text parts of the response content.
func (r *Response) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}
	var out string
	for _, part := range r.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		out += part.Text
	}
	return out
}

// NewUserRequest wraps a plain-text prompt in a single user-role content
// block, the shape every judge call uses.
func NewUserRequest(prompt string, config *genai.GenerateContentConfig) *Request {
	return &Request{
		Contents: []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		},
		Config: config,
	}
}
