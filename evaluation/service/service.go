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

// Package service orchestrates the evaluation pipeline: it pulls eval sets
// from storage, runs inference against the agent, scores the results with
// the registered metrics, and streams per-case outcomes back to the
// caller.
package service

import (
	"context"
	"fmt"
	"iter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/inference"
)

const tracerName = "github.com/evalkit/evalkit/evaluation/service"

// Service is the evaluation pipeline front end.
type Service struct {
	sets     evaluation.EvalSetStore
	results  evaluation.ResultStore
	registry *evaluation.Registry
	engine   *inference.Engine
	evalCfg  evaluation.EvaluatorConfig

	tracer trace.Tracer
}

// Config assembles a Service. Sets and Registry are required; Engine is
// needed only for inference; Results enables result persistence when set.
type Config struct {
	Sets     evaluation.EvalSetStore
	Results  evaluation.ResultStore
	Registry *evaluation.Registry
	Engine   *inference.Engine

	Evaluators evaluation.EvaluatorConfig
}

// New validates the configuration and builds the service.
func New(cfg Config) (*Service, error) {
	if cfg.Sets == nil {
		return nil, fmt.Errorf("%w: eval set store is required", evaluation.ErrInvalidInput)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: metric registry is required", evaluation.ErrInvalidInput)
	}
	return &Service{
		sets:     cfg.Sets,
		results:  cfg.Results,
		registry: cfg.Registry,
		engine:   cfg.Engine,
		evalCfg:  cfg.Evaluators,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// InferenceRequest selects the eval set (or a subset of its cases) to run.
type InferenceRequest struct {
	AppName   string
	EvalSetID string

	// CaseIDs restricts the run to the named cases. Empty means all.
	CaseIDs []string

	UserID    string
	Config    evaluation.InferenceConfig
	Simulator *evaluation.UserSimulatorConfig
}

// PerformInference runs the selected cases through the agent and streams
// one inference result per case as it completes. Case failures arrive as
// FAILURE results, not stream errors.
func (s *Service) PerformInference(ctx context.Context, req *InferenceRequest) iter.Seq2[*evaluation.InferenceResult, error] {
	return func(yield func(*evaluation.InferenceResult, error) bool) {
		ctx, span := s.tracer.Start(ctx, "evaluation.PerformInference",
			trace.WithAttributes(
				attribute.String("app_name", req.AppName),
				attribute.String("eval_set_id", req.EvalSetID),
			))
		defer span.End()

		if s.engine == nil {
			yield(nil, fmt.Errorf("%w: service has no inference engine", evaluation.ErrInvalidInput))
			return
		}
		evalSet, err := s.selectCases(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}
		for result, err := range s.engine.PerformInferenceStream(ctx, evalSet, inference.Options{
			AppName:   req.AppName,
			UserID:    req.UserID,
			Config:    req.Config,
			Simulator: req.Simulator,
		}) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(result, nil) {
				return
			}
		}
	}
}

// selectCases loads the eval set and applies the case filter.
func (s *Service) selectCases(ctx context.Context, req *InferenceRequest) (*evaluation.EvalSet, error) {
	evalSet, err := s.sets.GetEvalSet(ctx, req.AppName, req.EvalSetID)
	if err != nil {
		return nil, err
	}
	if len(req.CaseIDs) == 0 {
		return evalSet, nil
	}
	wanted := make(map[string]bool, len(req.CaseIDs))
	for _, id := range req.CaseIDs {
		wanted[id] = true
	}
	filtered := *evalSet
	filtered.EvalCases = nil
	for i := range evalSet.EvalCases {
		if wanted[evalSet.EvalCases[i].ID] {
			filtered.EvalCases = append(filtered.EvalCases, evalSet.EvalCases[i])
			delete(wanted, evalSet.EvalCases[i].ID)
		}
	}
	for id := range wanted {
		return nil, fmt.Errorf("%w: eval case %s not in set %s", evaluation.ErrNotFound, id, req.EvalSetID)
	}
	return &filtered, nil
}

// Run performs inference and evaluation back to back, streaming per-case
// results.
func (s *Service) Run(ctx context.Context, infReq *InferenceRequest, evalReq *EvaluateRequest) iter.Seq2[*evaluation.EvalCaseResult, error] {
	return func(yield func(*evaluation.EvalCaseResult, error) bool) {
		var inferences []*evaluation.InferenceResult
		for result, err := range s.PerformInference(ctx, infReq) {
			if err != nil {
				yield(nil, err)
				return
			}
			inferences = append(inferences, result)
		}
		req := *evalReq
		req.AppName = infReq.AppName
		req.EvalSetID = infReq.EvalSetID
		req.InferenceResults = inferences
		for result, err := range s.Evaluate(ctx, &req) {
			if !yield(result, err) {
				return
			}
		}
	}
}
