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

// Package inference drives eval cases through an agent and captures the
// resulting invocations for scoring.
package inference

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/simulation"
	"github.com/evalkit/evalkit/model"
	"github.com/evalkit/evalkit/runner"
	"github.com/evalkit/evalkit/session"
)

// DefaultUserID is used when neither the case nor the options name a user.
const DefaultUserID = "eval_user"

// Engine runs eval cases against an agent with bounded parallelism.
type Engine struct {
	runner   runner.AgentRunner
	sessions session.Service

	// simulatorLLM backs the LLM simulator for scenario-driven cases.
	// Cases with a conversation scenario fail without it.
	simulatorLLM model.LLM
}

// Options configures one inference pass over an eval set.
type Options struct {
	AppName string
	UserID  string

	Config    evaluation.InferenceConfig
	Simulator *evaluation.UserSimulatorConfig
}

// New creates an inference engine. simulatorLLM may be nil when no case
// uses a conversation scenario.
func New(agentRunner runner.AgentRunner, sessions session.Service, simulatorLLM model.LLM) *Engine {
	return &Engine{runner: agentRunner, sessions: sessions, simulatorLLM: simulatorLLM}
}

// PerformInference runs every case in the set and returns one result per
// case, in case order. Per-case failures are captured in the result rather
// than aborting the pass; only pool setup fails the call.
func (e *Engine) PerformInference(ctx context.Context, evalSet *evaluation.EvalSet, opts Options) ([]*evaluation.InferenceResult, error) {
	byCase := make(map[string]*evaluation.InferenceResult, len(evalSet.EvalCases))
	for result, err := range e.PerformInferenceStream(ctx, evalSet, opts) {
		if err != nil {
			return nil, err
		}
		byCase[result.EvalCaseID] = result
	}
	results := make([]*evaluation.InferenceResult, 0, len(evalSet.EvalCases))
	for i := range evalSet.EvalCases {
		if result, ok := byCase[evalSet.EvalCases[i].ID]; ok {
			results = append(results, result)
		}
	}
	return results, nil
}

// PerformInferenceStream runs every case in the set and yields each result
// as its case completes, in completion order. Per-case failures are
// captured in the yielded result rather than ending the stream; only pool
// setup fails it.
func (e *Engine) PerformInferenceStream(ctx context.Context, evalSet *evaluation.EvalSet, opts Options) iter.Seq2[*evaluation.InferenceResult, error] {
	return func(yield func(*evaluation.InferenceResult, error) bool) {
		pool, err := ants.NewPool(opts.Config.Workers())
		if err != nil {
			yield(nil, fmt.Errorf("create inference pool: %w", err))
			return
		}
		defer pool.Release()

		// Cancellation unblocks workers whose results the consumer
		// abandoned.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		completed := make(chan *evaluation.InferenceResult)
		go func() {
			var wg sync.WaitGroup
			for i := range evalSet.EvalCases {
				evalCase := &evalSet.EvalCases[i]
				wg.Add(1)
				submitErr := pool.Submit(func() {
					defer wg.Done()
					select {
					case completed <- e.runCase(ctx, evalSet.ID, evalCase, opts):
					case <-ctx.Done():
					}
				})
				if submitErr != nil {
					wg.Done()
					select {
					case completed <- failedResult(evalSet.ID, evalCase.ID, opts.AppName, submitErr):
					case <-ctx.Done():
					}
				}
			}
			wg.Wait()
			close(completed)
		}()

		for result := range completed {
			if !yield(result, nil) {
				return
			}
		}
	}
}

// runCase performs every configured run of one case.
func (e *Engine) runCase(ctx context.Context, evalSetID string, evalCase *evaluation.EvalCase, opts Options) *evaluation.InferenceResult {
	if err := evalCase.Validate(); err != nil {
		return failedResult(evalSetID, evalCase.ID, opts.AppName, err)
	}
	result := &evaluation.InferenceResult{
		AppName:    opts.AppName,
		EvalSetID:  evalSetID,
		EvalCaseID: evalCase.ID,
		UserID:     caseUserID(evalCase, opts),
		Status:     evaluation.InferenceStatusSuccess,
	}
	var runErrs *multierror.Error
	for run := 0; run < opts.Config.Runs(); run++ {
		invocations, sessionID, err := e.runConversation(ctx, evalCase, opts)
		if err != nil {
			log.Error().
				Err(err).
				Str("eval_set_id", evalSetID).
				Str("eval_case_id", evalCase.ID).
				Int("run", run).
				Msg("inference run failed")
			runErrs = multierror.Append(runErrs, fmt.Errorf("run %d: %w", run, err))
			continue
		}
		result.SessionID = sessionID
		result.Inferences = append(result.Inferences, invocations)
	}
	if err := runErrs.ErrorOrNil(); err != nil {
		result.Status = evaluation.InferenceStatusFailure
		result.ErrorMessage = fmt.Errorf("%w: %v", evaluation.ErrInferenceFailure, err).Error()
	}
	return result
}

// runConversation drives one full conversation for a case: simulator turn,
// agent turn, repeat until the simulator stops.
func (e *Engine) runConversation(ctx context.Context, evalCase *evaluation.EvalCase, opts Options) ([]evaluation.Invocation, string, error) {
	userID := caseUserID(evalCase, opts)
	appName := caseAppName(evalCase, opts)

	var state map[string]any
	if evalCase.SessionInput != nil {
		state = evalCase.SessionInput.State
	}
	sess, err := e.sessions.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: session.NewEvalSessionID(),
		State:     state,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create eval session: %w", err)
	}
	defer func() {
		if err := e.sessions.Delete(context.WithoutCancel(ctx), appName, userID, sess.ID); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to delete eval session")
		}
	}()

	sim, err := e.simulatorFor(evalCase, opts)
	if err != nil {
		return nil, "", err
	}

	var invocations []evaluation.Invocation
	for {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		msg, err := sim.NextUserMessage(ctx, invocations)
		if err != nil {
			return nil, "", err
		}
		if msg.Status != simulation.StatusSuccess {
			log.Debug().
				Str("eval_case_id", evalCase.ID).
				Str("status", string(msg.Status)).
				Int("turns", len(invocations)).
				Msg("conversation finished")
			break
		}

		req := &runner.RunRequest{
			AppName:     appName,
			UserID:      userID,
			SessionID:   sess.ID,
			UserContent: msg.Content,
		}
		if len(invocations) == 0 {
			req.InitialState = state
		}
		turn, err := e.runTurn(ctx, req)
		if err != nil {
			return nil, "", err
		}
		invocations = append(invocations, turn...)
	}
	return invocations, sess.ID, nil
}

// runTurn executes one user turn and converts the event stream into
// invocations.
func (e *Engine) runTurn(ctx context.Context, req *runner.RunRequest) ([]evaluation.Invocation, error) {
	var events []*runner.Event
	for event, err := range e.runner.Run(ctx, req) {
		if err != nil {
			return nil, fmt.Errorf("agent run: %w", err)
		}
		if event.Partial {
			continue
		}
		events = append(events, event)
	}
	interceptor, _ := e.runner.(runner.RequestInterceptor)
	return groupEvents(req.UserContent, events, interceptor), nil
}

func (e *Engine) simulatorFor(evalCase *evaluation.EvalCase, opts Options) (simulation.UserSimulator, error) {
	if evalCase.ConversationScenario != nil {
		if e.simulatorLLM == nil {
			return nil, fmt.Errorf("%w: case %s needs an LLM-backed user simulator but no simulator model is configured",
				evaluation.ErrInvalidInput, evalCase.ID)
		}
		return simulation.NewLLMSimulator(e.simulatorLLM, *evalCase.ConversationScenario, opts.Simulator)
	}
	return simulation.NewStaticSimulator(evalCase.Conversation), nil
}

func caseUserID(evalCase *evaluation.EvalCase, opts Options) string {
	if evalCase.SessionInput != nil && evalCase.SessionInput.UserID != "" {
		return evalCase.SessionInput.UserID
	}
	if opts.UserID != "" {
		return opts.UserID
	}
	return DefaultUserID
}

func caseAppName(evalCase *evaluation.EvalCase, opts Options) string {
	if evalCase.SessionInput != nil && evalCase.SessionInput.AppName != "" {
		return evalCase.SessionInput.AppName
	}
	return opts.AppName
}

func failedResult(evalSetID, evalCaseID, appName string, err error) *evaluation.InferenceResult {
	return &evaluation.InferenceResult{
		AppName:      appName,
		EvalSetID:    evalSetID,
		EvalCaseID:   evalCaseID,
		Status:       evaluation.InferenceStatusFailure,
		ErrorMessage: fmt.Errorf("%w: %v", evaluation.ErrInferenceFailure, err).Error(),
	}
}
