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

package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/evalkit/evalkit/evaluation"
)

// EvaluateRequest scores previously captured inference results.
type EvaluateRequest struct {
	AppName   string
	EvalSetID string

	InferenceResults []*evaluation.InferenceResult
	Config           evaluation.EvaluateConfig

	// ResultName labels the persisted rollup. Persistence happens only
	// when the service was built with a result store.
	ResultName string
}

// Evaluate scores every inference result with the configured metrics and
// streams one case result per inference run, emitted as each case
// completes. Metric errors degrade that metric to NOT_EVALUATED; only
// storage and context errors end the stream early.
func (s *Service) Evaluate(ctx context.Context, req *EvaluateRequest) iter.Seq2[*evaluation.EvalCaseResult, error] {
	return func(yield func(*evaluation.EvalCaseResult, error) bool) {
		ctx, span := s.tracer.Start(ctx, "evaluation.Evaluate",
			trace.WithAttributes(
				attribute.String("app_name", req.AppName),
				attribute.String("eval_set_id", req.EvalSetID),
				attribute.Int("num_cases", len(req.InferenceResults)),
			))
		defer span.End()

		// Workers hand finished cases to the consumer through a completion
		// channel instead of buffering until the whole set is done.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		completed := make(chan []*evaluation.EvalCaseResult)
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(req.Config.Workers())
		for _, inferenceResult := range req.InferenceResults {
			eg.Go(func() error {
				results, err := s.evaluateCase(egCtx, req, inferenceResult)
				if err != nil {
					return err
				}
				select {
				case completed <- results:
					return nil
				case <-egCtx.Done():
					return egCtx.Err()
				}
			})
		}
		done := make(chan error, 1)
		go func() {
			done <- eg.Wait()
			close(completed)
		}()

		var flat []evaluation.EvalCaseResult
		for results := range completed {
			for _, result := range results {
				flat = append(flat, *result)
				if !yield(result, nil) {
					return
				}
			}
		}
		if err := <-done; err != nil {
			yield(nil, err)
			return
		}

		if s.results != nil {
			rollup := &evaluation.EvalSetResult{
				EvalSetResultID:   uuid.NewString(),
				EvalSetResultName: req.ResultName,
				EvalSetID:         req.EvalSetID,
				EvalCaseResults:   flat,
				CreatedAt:         time.Now().UTC(),
			}
			if err := s.results.SaveResult(ctx, req.AppName, rollup); err != nil {
				yield(nil, fmt.Errorf("save eval set result: %w", err))
			}
		}
	}
}

// evaluateCase scores one case: one EvalCaseResult per inference run.
func (s *Service) evaluateCase(ctx context.Context, req *EvaluateRequest, inferenceResult *evaluation.InferenceResult) ([]*evaluation.EvalCaseResult, error) {
	if inferenceResult.Status == evaluation.InferenceStatusFailure {
		log.Warn().
			Str("eval_case_id", inferenceResult.EvalCaseID).
			Str("error", inferenceResult.ErrorMessage).
			Msg("skipping evaluation of failed inference")
		return []*evaluation.EvalCaseResult{{
			EvalSetID:   req.EvalSetID,
			EvalID:      inferenceResult.EvalCaseID,
			FinalStatus: evaluation.EvalStatusNotEvaluated,
			SessionID:   inferenceResult.SessionID,
			UserID:      inferenceResult.UserID,
		}}, nil
	}

	evalCase, err := s.sets.GetEvalCase(ctx, req.AppName, req.EvalSetID, inferenceResult.EvalCaseID)
	if err != nil {
		return nil, err
	}

	var results []*evaluation.EvalCaseResult
	for _, actual := range inferenceResult.Inferences {
		params := evaluation.EvaluateParams{
			Actual:   actual,
			Expected: evalCase.Conversation,
			Scenario: evalCase.ConversationScenario,
		}
		results = append(results, s.evaluateRun(ctx, req, inferenceResult, params))
	}
	return results, nil
}

// evaluateRun applies every configured metric to one run's invocations.
func (s *Service) evaluateRun(ctx context.Context, req *EvaluateRequest, inferenceResult *evaluation.InferenceResult, params evaluation.EvaluateParams) *evaluation.EvalCaseResult {
	caseResult := &evaluation.EvalCaseResult{
		EvalSetID:   req.EvalSetID,
		EvalID:      inferenceResult.EvalCaseID,
		FinalStatus: evaluation.EvalStatusNotEvaluated,
		SessionID:   inferenceResult.SessionID,
		UserID:      inferenceResult.UserID,
	}

	perInvocation := make([]evaluation.InvocationMetricResults, len(params.Actual))
	for i := range params.Actual {
		perInvocation[i].InvocationID = params.Actual[i].ID
	}

	for _, metric := range req.Config.EvalMetrics {
		result := s.runMetric(ctx, metric, params, inferenceResult.EvalCaseID)

		overall := evaluation.EvalMetricResult{
			MetricName: metric.MetricName,
			Threshold:  metric.EffectiveCriterion().PassThreshold(),
			Status:     evaluation.EvalStatusNotEvaluated,
		}
		if result != nil {
			overall.Score = result.OverallScore
			overall.Status = result.OverallStatus
			if len(result.OverallRubricScores) > 0 {
				overall.Details = &evaluation.EvalMetricResultDetails{RubricScores: result.OverallRubricScores}
			}
		}
		caseResult.OverallMetricResults = append(caseResult.OverallMetricResults, overall)

		// Every invocation gets an entry for every metric. Metrics that
		// scored fewer invocations pad the rest with NOT_EVALUATED.
		for i := range perInvocation {
			entry := evaluation.EvalMetricResult{
				MetricName: metric.MetricName,
				Threshold:  overall.Threshold,
				Status:     evaluation.EvalStatusNotEvaluated,
			}
			if result != nil && i < len(result.PerInvocationResults) {
				per := result.PerInvocationResults[i]
				entry.Score = per.Score
				entry.Status = per.Status
				if len(per.RubricScores) > 0 {
					entry.Details = &evaluation.EvalMetricResultDetails{RubricScores: per.RubricScores}
				}
			}
			perInvocation[i].Results = append(perInvocation[i].Results, entry)
		}

		// The simulator quality metric scores the simulated user, not the
		// agent, so it never moves the case verdict.
		if metric.MetricName == evaluation.MetricUserSimulatorQualityV1 {
			continue
		}
		switch overall.Status {
		case evaluation.EvalStatusFailed:
			caseResult.FinalStatus = evaluation.EvalStatusFailed
		case evaluation.EvalStatusPassed:
			if caseResult.FinalStatus != evaluation.EvalStatusFailed {
				caseResult.FinalStatus = evaluation.EvalStatusPassed
			}
		}
	}
	caseResult.PerInvocationResults = perInvocation
	return caseResult
}

// runMetric evaluates one metric, converting every failure mode, including
// panics inside an evaluator, into a nil result the caller records as
// NOT_EVALUATED.
func (s *Service) runMetric(ctx context.Context, metric evaluation.EvalMetric, params evaluation.EvaluateParams, evalCaseID string) (result *evaluation.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("metric", metric.MetricName.String()).
				Str("eval_case_id", evalCaseID).
				Any("panic", r).
				Msg("metric evaluator panicked, recording NOT_EVALUATED")
			result = nil
		}
	}()

	evaluator, err := s.registry.GetEvaluator(metric, s.evalCfg)
	if err != nil {
		log.Warn().
			Err(err).
			Str("metric", metric.MetricName.String()).
			Str("eval_case_id", evalCaseID).
			Msg("metric evaluator unavailable, recording NOT_EVALUATED")
		return nil
	}
	result, err = evaluator.EvaluateInvocations(ctx, params)
	if err != nil {
		log.Warn().
			Err(err).
			Str("metric", metric.MetricName.String()).
			Str("eval_case_id", evalCaseID).
			Msg("metric evaluation failed, recording NOT_EVALUATED")
		return nil
	}
	return result
}
