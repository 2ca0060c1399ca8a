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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evalkit/evalkit/evaluation"
)

const (
	evalSetSuffix = ".evalset.json"
	resultSuffix  = ".evalset_result.json"
)

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// FileStore persists eval sets and results as JSON files:
//
//	<basePath>/<appName>/<evalSetID>.evalset.json
//	<basePath>/<appName>/results/<resultID>.evalset_result.json
//
// Legacy eval-set files (a JSON list of named cases) and legacy
// double-encoded result files are accepted on read and converted.
type FileStore struct {
	mu       sync.RWMutex
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

var (
	_ evaluation.EvalSetStore = (*FileStore)(nil)
	_ evaluation.ResultStore  = (*FileStore)(nil)
)

func (f *FileStore) evalSetPath(appName, evalSetID string) string {
	return filepath.Join(f.basePath, appName, evalSetID+evalSetSuffix)
}

func (f *FileStore) resultPath(appName, resultID string) string {
	return filepath.Join(f.basePath, appName, "results", resultID+resultSuffix)
}

func (f *FileStore) readEvalSet(appName, evalSetID string) (*evaluation.EvalSet, error) {
	data, err := os.ReadFile(f.evalSetPath(appName, evalSetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
		}
		return nil, fmt.Errorf("read eval set file: %w", err)
	}
	return evaluation.UnmarshalEvalSet(data)
}

func (f *FileStore) writeEvalSet(appName string, set *evaluation.EvalSet) error {
	data, err := evaluation.MarshalEvalSet(set)
	if err != nil {
		return fmt.Errorf("marshal eval set: %w", err)
	}
	path := f.evalSetPath(appName, set.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create app directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write eval set file: %w", err)
	}
	return nil
}

// GetEvalSet implements evaluation.EvalSetStore.
func (f *FileStore) GetEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.readEvalSet(appName, evalSetID)
}

// ListEvalSets implements evaluation.EvalSetStore.
func (f *FileStore) ListEvalSets(ctx context.Context, appName string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(f.basePath, appName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read app directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), evalSetSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), evalSetSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateEvalSet implements evaluation.EvalSetStore.
func (f *FileStore) CreateEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	if err := evaluation.ValidateID(evalSetID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.evalSetPath(appName, evalSetID)); err == nil {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrAlreadyExists, evalSetID)
	}
	set := &evaluation.EvalSet{ID: evalSetID, CreatedAt: now()}
	if err := f.writeEvalSet(appName, set); err != nil {
		return nil, err
	}
	return set, nil
}

// AddEvalCase implements evaluation.EvalSetStore.
func (f *FileStore) AddEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	set, err := f.readEvalSet(appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			return fmt.Errorf("%w: eval case %s", evaluation.ErrAlreadyExists, evalCase.ID)
		}
	}
	set.EvalCases = append(set.EvalCases, *evalCase)
	return f.writeEvalSet(appName, set)
}

// UpdateEvalCase implements evaluation.EvalSetStore.
func (f *FileStore) UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	set, err := f.readEvalSet(appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			set.EvalCases[i] = *evalCase
			return f.writeEvalSet(appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCase.ID)
}

// DeleteEvalCase implements evaluation.EvalSetStore.
func (f *FileStore) DeleteEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, err := f.readEvalSet(appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			set.EvalCases = append(set.EvalCases[:i], set.EvalCases[i+1:]...)
			return f.writeEvalSet(appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// GetEvalCase implements evaluation.EvalSetStore.
func (f *FileStore) GetEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*evaluation.EvalCase, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	set, err := f.readEvalSet(appName, evalSetID)
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
func (f *FileStore) SaveResult(ctx context.Context, appName string, result *evaluation.EvalSetResult) error {
	if result == nil || result.EvalSetResultID == "" {
		return fmt.Errorf("%w: result id is required", evaluation.ErrInvalidInput)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := evaluation.MarshalEvalSetResult(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	path := f.resultPath(appName, result.EvalSetResultID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}

// GetResult implements evaluation.ResultStore.
func (f *FileStore) GetResult(ctx context.Context, appName, resultID string) (*evaluation.EvalSetResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.resultPath(appName, resultID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: result %s", evaluation.ErrNotFound, resultID)
		}
		return nil, fmt.Errorf("read result file: %w", err)
	}
	return evaluation.UnmarshalEvalSetResult(data)
}

// ListResults implements evaluation.ResultStore.
func (f *FileStore) ListResults(ctx context.Context, appName string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(f.basePath, appName, "results"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), resultSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), resultSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}
