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
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Middleware wraps an LLM to alter request or response behavior.
type Middleware func(LLM) LLM

// Compose applies middlewares to an LLM, outermost first.
func Compose(llm LLM, mw ...Middleware) LLM {
	for i := len(mw) - 1; i >= 0; i-- {
		llm = mw[i](llm)
	}
	return llm
}

// RetryOptions configures the retry middleware.
type RetryOptions struct {
	// MaxAttempts bounds the total number of attempts. Defaults to 3.
	MaxAttempts int
	// InitialInterval is the first backoff delay. Defaults to 1s.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay. Defaults to 30s.
	MaxInterval time.Duration
	// RetryableError reports whether an error is transient. When nil, every
	// error is treated as transient.
	RetryableError func(error) bool
}

// TransientError marks an error as retryable by the default retry policy.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// WithRetry returns a middleware that retries failed generate calls with
// exponential backoff. Streaming requests are retried as a whole: a failure
// mid-stream discards the partial responses and reissues the request.
func WithRetry(opts RetryOptions) Middleware {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return func(llm LLM) LLM {
		return &retryLLM{inner: llm, opts: opts}
	}
}

// DefaultRetry is the retry policy attached to every judge and simulator
// request that does not already carry one.
func DefaultRetry() Middleware {
	return WithRetry(RetryOptions{
		RetryableError: func(err error) bool {
			var te *TransientError
			return errors.As(err, &te)
		},
	})
}

type retryLLM struct {
	inner LLM
	opts  RetryOptions
}

func (r *retryLLM) Name() string { return r.inner.Name() }

func (r *retryLLM) GenerateContent(ctx context.Context, req *Request, stream bool) ResponseStream {
	return func(yield func(*Response, error) bool) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = r.opts.InitialInterval
		bo.MaxInterval = r.opts.MaxInterval

		var lastErr error
		for attempt := 0; attempt < r.opts.MaxAttempts; attempt++ {
			if attempt > 0 {
				next := bo.NextBackOff()
				if next == backoff.Stop {
					break
				}
				log.Debug().
					Int("attempt", attempt).
					Dur("backoff", next).
					Str("model", r.inner.Name()).
					Msg("retrying llm request")
				select {
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				case <-time.After(next):
				}
			}

			responses, err := collect(r.inner.GenerateContent(ctx, req, stream))
			if err == nil {
				for _, resp := range responses {
					if !yield(resp, nil) {
						return
					}
				}
				return
			}
			lastErr = err
			if ctx.Err() != nil || (r.opts.RetryableError != nil && !r.opts.RetryableError(err)) {
				break
			}
		}
		yield(nil, lastErr)
	}
}

func collect(stream ResponseStream) ([]*Response, error) {
	var out []*Response
	for resp, err := range stream {
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
