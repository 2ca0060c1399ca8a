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

// Package llmjudge prompts a judge LLM, parses structured verdicts out of
// its free-form responses, and aggregates repeated samples into stable
// scores.
package llmjudge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/model"
)

// Judge samples a judge LLM N times per prompt.
type Judge struct {
	llm model.LLM
}

// NewJudge wraps a judge LLM. The default retry policy is attached unless
// the caller composes its own middleware.
func NewJudge(llm model.LLM, mw ...model.Middleware) *Judge {
	if len(mw) == 0 {
		mw = []model.Middleware{model.DefaultRetry()}
	}
	return &Judge{llm: model.Compose(llm, mw...)}
}

// Sample issues opts.SampleCount() judge calls for the prompt and returns
// the response texts. Individually failed calls are logged and omitted, so
// callers see them as missing (NOT_EVALUATED) samples; the call only fails
// as a whole on context cancellation.
func (j *Judge) Sample(ctx context.Context, prompt string, opts evaluation.JudgeModelOptions) ([]string, error) {
	numSamples := opts.SampleCount()
	samples := make([]string, 0, numSamples)
	for i := range numSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := j.generate(ctx, prompt, opts)
		if err != nil {
			log.Warn().
				Err(err).
				Int("sample", i).
				Str("judge_model", opts.JudgeModelID).
				Msg("judge sample failed")
			continue
		}
		samples = append(samples, text)
	}
	return samples, nil
}

func (j *Judge) generate(ctx context.Context, prompt string, opts evaluation.JudgeModelOptions) (string, error) {
	req := model.NewUserRequest(prompt, opts.JudgeModelConfig)
	req.Model = opts.JudgeModelID

	var text string
	for resp, err := range j.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("judge generation failed: %w", err)
		}
		if t := resp.Text(); t != "" {
			text = t
		}
	}
	if text == "" {
		return "", fmt.Errorf("judge returned empty response")
	}
	return text, nil
}
