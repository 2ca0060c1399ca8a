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

package evaluation

import "context"

// EvalSetStore persists eval sets and their cases. Implementations may back
// onto memory, local disk, a database, or object storage.
type EvalSetStore interface {
	// GetEvalSet retrieves an eval set. Fails with ErrNotFound.
	GetEvalSet(ctx context.Context, appName, evalSetID string) (*EvalSet, error)

	// ListEvalSets returns the ids of all eval sets for an app.
	ListEvalSets(ctx context.Context, appName string) ([]string, error)

	// CreateEvalSet creates an empty eval set. Fails with ErrAlreadyExists
	// on id conflict and ErrInvalidInput on a malformed id.
	CreateEvalSet(ctx context.Context, appName, evalSetID string) (*EvalSet, error)

	// AddEvalCase appends a case. Fails with ErrNotFound if the set is
	// missing and ErrAlreadyExists if the case id duplicates.
	AddEvalCase(ctx context.Context, appName, evalSetID string, evalCase *EvalCase) error

	// UpdateEvalCase overwrites a case by id. Fails with ErrNotFound if the
	// set or case is missing.
	UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *EvalCase) error

	// DeleteEvalCase removes a case. Fails with ErrNotFound.
	DeleteEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) error

	// GetEvalCase retrieves a case. Fails with ErrNotFound.
	GetEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*EvalCase, error)
}

// ResultStore persists eval set results.
type ResultStore interface {
	// SaveResult stores a result rollup.
	SaveResult(ctx context.Context, appName string, result *EvalSetResult) error

	// GetResult retrieves a result by id. Fails with ErrNotFound.
	GetResult(ctx context.Context, appName, resultID string) (*EvalSetResult, error)

	// ListResults returns the ids of all results for an app.
	ListResults(ctx context.Context, appName string) ([]string, error)
}
