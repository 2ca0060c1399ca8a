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

// Package storage provides eval set and result stores backed by memory,
// local files, SQLite, and Google Cloud Storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/evalkit/evalkit/evaluation"
)

// MemoryStore keeps eval sets and results in process memory. Suitable for
// tests and development.
type MemoryStore struct {
	mu sync.RWMutex

	// sets maps appName -> evalSetID -> EvalSet. Cases live inside their
	// set; both maps are kept consistent on every mutation.
	sets map[string]map[string]*evaluation.EvalSet

	// results maps appName -> resultID -> EvalSetResult.
	results map[string]map[string]*evaluation.EvalSetResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:    make(map[string]map[string]*evaluation.EvalSet),
		results: make(map[string]map[string]*evaluation.EvalSetResult),
	}
}

var (
	_ evaluation.EvalSetStore = (*MemoryStore)(nil)
	_ evaluation.ResultStore  = (*MemoryStore)(nil)
)

// deepCopy round-trips a value through JSON so callers never share memory
// with the store.
func deepCopy[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("copy value: %w", err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("copy value: %w", err)
	}
	return out, nil
}

// GetEvalSet implements evaluation.EvalSetStore.
func (m *MemoryStore) GetEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[appName][evalSetID]
	if !ok {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	return deepCopy(set)
}

// ListEvalSets implements evaluation.EvalSetStore.
func (m *MemoryStore) ListEvalSets(ctx context.Context, appName string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sets[appName]))
	for id := range m.sets[appName] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateEvalSet implements evaluation.EvalSetStore.
func (m *MemoryStore) CreateEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	if err := evaluation.ValidateID(evalSetID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[appName]; !ok {
		m.sets[appName] = make(map[string]*evaluation.EvalSet)
	}
	if _, ok := m.sets[appName][evalSetID]; ok {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrAlreadyExists, evalSetID)
	}
	set := &evaluation.EvalSet{ID: evalSetID, CreatedAt: now()}
	m.sets[appName][evalSetID] = set
	return deepCopy(set)
}

// AddEvalCase implements evaluation.EvalSetStore.
func (m *MemoryStore) AddEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[appName][evalSetID]
	if !ok {
		return fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			return fmt.Errorf("%w: eval case %s", evaluation.ErrAlreadyExists, evalCase.ID)
		}
	}
	copied, err := deepCopy(evalCase)
	if err != nil {
		return err
	}
	set.EvalCases = append(set.EvalCases, *copied)
	return nil
}

// UpdateEvalCase implements evaluation.EvalSetStore.
func (m *MemoryStore) UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[appName][evalSetID]
	if !ok {
		return fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			copied, err := deepCopy(evalCase)
			if err != nil {
				return err
			}
			set.EvalCases[i] = *copied
			return nil
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCase.ID)
}

// DeleteEvalCase implements evaluation.EvalSetStore.
func (m *MemoryStore) DeleteEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[appName][evalSetID]
	if !ok {
		return fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			set.EvalCases = append(set.EvalCases[:i], set.EvalCases[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// GetEvalCase implements evaluation.EvalSetStore.
func (m *MemoryStore) GetEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*evaluation.EvalCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[appName][evalSetID]
	if !ok {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			return deepCopy(&set.EvalCases[i])
		}
	}
	return nil, fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// SaveResult implements evaluation.ResultStore.
func (m *MemoryStore) SaveResult(ctx context.Context, appName string, result *evaluation.EvalSetResult) error {
	if result == nil || result.EvalSetResultID == "" {
		return fmt.Errorf("%w: result id is required", evaluation.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.results[appName]; !ok {
		m.results[appName] = make(map[string]*evaluation.EvalSetResult)
	}
	copied, err := deepCopy(result)
	if err != nil {
		return err
	}
	m.results[appName][result.EvalSetResultID] = copied
	return nil
}

// GetResult implements evaluation.ResultStore.
func (m *MemoryStore) GetResult(ctx context.Context, appName, resultID string) (*evaluation.EvalSetResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[appName][resultID]
	if !ok {
		return nil, fmt.Errorf("%w: result %s", evaluation.ErrNotFound, resultID)
	}
	return deepCopy(result)
}

// ListResults implements evaluation.ResultStore.
func (m *MemoryStore) ListResults(ctx context.Context, appName string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.results[appName]))
	for id := range m.results[appName] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
