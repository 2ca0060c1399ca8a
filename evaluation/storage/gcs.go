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

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/evalkit/evalkit/evaluation"
)

// GCSStore persists eval sets and results as objects in a Cloud Storage
// bucket:
//
//	<prefix>/<appName>/evals/<evalSetID>.evalset.json
//	<prefix>/<appName>/results/<resultID>.evalset_result.json
type GCSStore struct {
	bucket *gcs.BucketHandle
	prefix string
}

// NewGCSStore creates a store over an existing bucket. prefix may be empty.
func NewGCSStore(client *gcs.Client, bucketName, prefix string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucketName), prefix: strings.Trim(prefix, "/")}
}

var (
	_ evaluation.EvalSetStore = (*GCSStore)(nil)
	_ evaluation.ResultStore  = (*GCSStore)(nil)
)

func (g *GCSStore) join(parts ...string) string {
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func (g *GCSStore) evalSetObject(appName, evalSetID string) string {
	return g.join(appName, "evals", evalSetID+evalSetSuffix)
}

func (g *GCSStore) resultObject(appName, resultID string) string {
	return g.join(appName, "results", resultID+resultSuffix)
}

func (g *GCSStore) read(ctx context.Context, object string) ([]byte, error) {
	r, err := g.bucket.Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, evaluation.ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", object, err)
	}
	return data, nil
}

func (g *GCSStore) write(ctx context.Context, object string, data []byte) error {
	w := g.bucket.Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", object, err)
	}
	return nil
}

func (g *GCSStore) list(ctx context.Context, prefix, suffix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var ids []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		name := attrs.Name
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		name = strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], suffix)
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

func (g *GCSStore) loadEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	data, err := g.read(ctx, g.evalSetObject(appName, evalSetID))
	if err != nil {
		if errors.Is(err, evaluation.ErrNotFound) {
			return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
		}
		return nil, err
	}
	return evaluation.UnmarshalEvalSet(data)
}

func (g *GCSStore) saveEvalSet(ctx context.Context, appName string, set *evaluation.EvalSet) error {
	data, err := evaluation.MarshalEvalSet(set)
	if err != nil {
		return fmt.Errorf("marshal eval set: %w", err)
	}
	return g.write(ctx, g.evalSetObject(appName, set.ID), data)
}

// GetEvalSet implements evaluation.EvalSetStore.
func (g *GCSStore) GetEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	return g.loadEvalSet(ctx, appName, evalSetID)
}

// ListEvalSets implements evaluation.EvalSetStore.
func (g *GCSStore) ListEvalSets(ctx context.Context, appName string) ([]string, error) {
	return g.list(ctx, g.join(appName, "evals")+"/", evalSetSuffix)
}

// CreateEvalSet implements evaluation.EvalSetStore.
func (g *GCSStore) CreateEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	if err := evaluation.ValidateID(evalSetID); err != nil {
		return nil, err
	}
	if _, err := g.loadEvalSet(ctx, appName, evalSetID); err == nil {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrAlreadyExists, evalSetID)
	} else if !errors.Is(err, evaluation.ErrNotFound) {
		return nil, err
	}
	set := &evaluation.EvalSet{ID: evalSetID, CreatedAt: now()}
	if err := g.saveEvalSet(ctx, appName, set); err != nil {
		return nil, err
	}
	return set, nil
}

// AddEvalCase implements evaluation.EvalSetStore.
func (g *GCSStore) AddEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}
	set, err := g.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			return fmt.Errorf("%w: eval case %s", evaluation.ErrAlreadyExists, evalCase.ID)
		}
	}
	set.EvalCases = append(set.EvalCases, *evalCase)
	return g.saveEvalSet(ctx, appName, set)
}

// UpdateEvalCase implements evaluation.EvalSetStore.
func (g *GCSStore) UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}
	set, err := g.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			set.EvalCases[i] = *evalCase
			return g.saveEvalSet(ctx, appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCase.ID)
}

// DeleteEvalCase implements evaluation.EvalSetStore.
func (g *GCSStore) DeleteEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) error {
	set, err := g.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			set.EvalCases = append(set.EvalCases[:i], set.EvalCases[i+1:]...)
			return g.saveEvalSet(ctx, appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// GetEvalCase implements evaluation.EvalSetStore.
func (g *GCSStore) GetEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*evaluation.EvalCase, error) {
	set, err := g.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return nil, err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			return &set.EvalCases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// SaveResult implements evaluation.ResultStore.
func (g *GCSStore) SaveResult(ctx context.Context, appName string, result *evaluation.EvalSetResult) error {
	if result == nil || result.EvalSetResultID == "" {
		return fmt.Errorf("%w: result id is required", evaluation.ErrInvalidInput)
	}
	data, err := evaluation.MarshalEvalSetResult(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return g.write(ctx, g.resultObject(appName, result.EvalSetResultID), data)
}

// GetResult implements evaluation.ResultStore.
func (g *GCSStore) GetResult(ctx context.Context, appName, resultID string) (*evaluation.EvalSetResult, error) {
	data, err := g.read(ctx, g.resultObject(appName, resultID))
	if err != nil {
		if errors.Is(err, evaluation.ErrNotFound) {
			return nil, fmt.Errorf("%w: result %s", evaluation.ErrNotFound, resultID)
		}
		return nil, err
	}
	return evaluation.UnmarshalEvalSetResult(data)
}

// ListResults implements evaluation.ResultStore.
func (g *GCSStore) ListResults(ctx context.Context, appName string) ([]string, error) {
	return g.list(ctx, g.join(appName, "results")+"/", resultSuffix)
}
