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

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evalkit/evalkit/evaluation"
)

// evalSetRow stores one eval set as a JSON document keyed by app and id.
type evalSetRow struct {
	AppName   string `gorm:"primaryKey;column:app_name"`
	EvalSetID string `gorm:"primaryKey;column:eval_set_id"`
	Data      []byte `gorm:"column:data"`
}

func (evalSetRow) TableName() string { return "eval_sets" }

// evalResultRow stores one result rollup as a JSON document.
type evalResultRow struct {
	AppName  string `gorm:"primaryKey;column:app_name"`
	ResultID string `gorm:"primaryKey;column:eval_set_result_id"`
	Data     []byte `gorm:"column:data"`
}

func (evalResultRow) TableName() string { return "eval_set_results" }

// SQLiteStore persists eval sets and results in a SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at path. Use
// ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&evalSetRow{}, &evalResultRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

var (
	_ evaluation.EvalSetStore = (*SQLiteStore)(nil)
	_ evaluation.ResultStore  = (*SQLiteStore)(nil)
)

func (s *SQLiteStore) loadEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	var row evalSetRow
	err := s.db.WithContext(ctx).
		Where("app_name = ? AND eval_set_id = ?", appName, evalSetID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrNotFound, evalSetID)
	}
	if err != nil {
		return nil, fmt.Errorf("query eval set: %w", err)
	}
	return evaluation.UnmarshalEvalSet(row.Data)
}

func (s *SQLiteStore) saveEvalSet(ctx context.Context, appName string, set *evaluation.EvalSet) error {
	data, err := evaluation.MarshalEvalSet(set)
	if err != nil {
		return fmt.Errorf("marshal eval set: %w", err)
	}
	row := evalSetRow{AppName: appName, EvalSetID: set.ID, Data: data}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save eval set: %w", err)
	}
	return nil
}

// GetEvalSet implements evaluation.EvalSetStore.
func (s *SQLiteStore) GetEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	return s.loadEvalSet(ctx, appName, evalSetID)
}

// ListEvalSets implements evaluation.EvalSetStore.
func (s *SQLiteStore) ListEvalSets(ctx context.Context, appName string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&evalSetRow{}).
		Where("app_name = ?", appName).
		Order("eval_set_id").
		Pluck("eval_set_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list eval sets: %w", err)
	}
	return ids, nil
}

// CreateEvalSet implements evaluation.EvalSetStore.
func (s *SQLiteStore) CreateEvalSet(ctx context.Context, appName, evalSetID string) (*evaluation.EvalSet, error) {
	if err := evaluation.ValidateID(evalSetID); err != nil {
		return nil, err
	}
	if _, err := s.loadEvalSet(ctx, appName, evalSetID); err == nil {
		return nil, fmt.Errorf("%w: eval set %s", evaluation.ErrAlreadyExists, evalSetID)
	} else if !errors.Is(err, evaluation.ErrNotFound) {
		return nil, err
	}
	set := &evaluation.EvalSet{ID: evalSetID, CreatedAt: now()}
	if err := s.saveEvalSet(ctx, appName, set); err != nil {
		return nil, err
	}
	return set, nil
}

// AddEvalCase implements evaluation.EvalSetStore.
func (s *SQLiteStore) AddEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}
	set, err := s.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			return fmt.Errorf("%w: eval case %s", evaluation.ErrAlreadyExists, evalCase.ID)
		}
	}
	set.EvalCases = append(set.EvalCases, *evalCase)
	return s.saveEvalSet(ctx, appName, set)
}

// UpdateEvalCase implements evaluation.EvalSetStore.
func (s *SQLiteStore) UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *evaluation.EvalCase) error {
	if err := evalCase.Validate(); err != nil {
		return err
	}
	set, err := s.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCase.ID {
			set.EvalCases[i] = *evalCase
			return s.saveEvalSet(ctx, appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCase.ID)
}

// DeleteEvalCase implements evaluation.EvalSetStore.
func (s *SQLiteStore) DeleteEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) error {
	set, err := s.loadEvalSet(ctx, appName, evalSetID)
	if err != nil {
		return err
	}
	for i := range set.EvalCases {
		if set.EvalCases[i].ID == evalCaseID {
			set.EvalCases = append(set.EvalCases[:i], set.EvalCases[i+1:]...)
			return s.saveEvalSet(ctx, appName, set)
		}
	}
	return fmt.Errorf("%w: eval case %s", evaluation.ErrNotFound, evalCaseID)
}

// GetEvalCase implements evaluation.EvalSetStore.
func (s *SQLiteStore) GetEvalCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*evaluation.EvalCase, error) {
	set, err := s.loadEvalSet(ctx, appName, evalSetID)
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
func (s *SQLiteStore) SaveResult(ctx context.Context, appName string, result *evaluation.EvalSetResult) error {
	if result == nil || result.EvalSetResultID == "" {
		return fmt.Errorf("%w: result id is required", evaluation.ErrInvalidInput)
	}
	data, err := evaluation.MarshalEvalSetResult(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	row := evalResultRow{AppName: appName, ResultID: result.EvalSetResultID, Data: data}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// GetResult implements evaluation.ResultStore.
func (s *SQLiteStore) GetResult(ctx context.Context, appName, resultID string) (*evaluation.EvalSetResult, error) {
	var row evalResultRow
	err := s.db.WithContext(ctx).
		Where("app_name = ? AND eval_set_result_id = ?", appName, resultID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: result %s", evaluation.ErrNotFound, resultID)
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	return evaluation.UnmarshalEvalSetResult(row.Data)
}

// ListResults implements evaluation.ResultStore.
func (s *SQLiteStore) ListResults(ctx context.Context, appName string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&evalResultRow{}).
		Where("app_name = ?", appName).
		Order("eval_set_result_id").
		Pluck("eval_set_result_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return ids, nil
}
