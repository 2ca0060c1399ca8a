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

package model

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

var _ LLM = (*GeminiModel)(nil)

// GeminiModel is an LLM backed by the Gemini API. It serves as the judge
// model and the user simulator model.
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini-backed LLM. The client configuration may
// be nil, in which case credentials come from the environment.
func NewGeminiModel(ctx context.Context, model string, cfg *genai.ClientConfig) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiModel{name: model, client: client}, nil
}

func (m *GeminiModel) Name() string {
	return m.name
}

// GenerateContent implements LLM. A Request.Model override selects a
// different model for the call without a new client.
func (m *GeminiModel) GenerateContent(ctx context.Context, req *Request, stream bool) ResponseStream {
	if m.client == nil {
		return func(yield func(*Response, error) bool) {
			yield(nil, fmt.Errorf("model uninitialized"))
		}
	}
	name := m.name
	if req.Model != "" {
		name = req.Model
	}
	if stream {
		return func(yield func(*Response, error) bool) {
			for resp, err := range m.client.Models.GenerateContentStream(ctx, name, req.Contents, req.Config) {
				if err != nil {
					yield(nil, err)
					return
				}
				if len(resp.Candidates) == 0 {
					yield(nil, fmt.Errorf("empty response"))
					return
				}
				candidate := resp.Candidates[0]
				complete := candidate.FinishReason != ""
				if !yield(&Response{
					Content:      candidate.Content,
					Partial:      !complete,
					TurnComplete: complete,
				}, nil) {
					return
				}
			}
		}
	}
	return func(yield func(*Response, error) bool) {
		resp, err := m.client.Models.GenerateContent(ctx, name, req.Contents, req.Config)
		if err != nil {
			yield(nil, err)
			return
		}
		if len(resp.Candidates) == 0 {
			yield(nil, fmt.Errorf("empty response"))
			return
		}
		yield(&Response{
			Content:      resp.Candidates[0].Content,
			TurnComplete: true,
		}, nil)
	}
}
