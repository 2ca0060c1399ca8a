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

import "errors"

var (
	// ErrNotFound indicates the requested eval set, case, or metric was not found.
	ErrNotFound = errors.New("evaluation: not found")

	// ErrAlreadyExists indicates the eval set or case already exists.
	ErrAlreadyExists = errors.New("evaluation: already exists")

	// ErrInvalidInput indicates invalid input parameters, such as a malformed
	// id or a case that sets both a conversation and a conversation scenario.
	ErrInvalidInput = errors.New("evaluation: invalid input")

	// ErrCriterionMismatch indicates the configured criterion type does not
	// match the metric evaluator. Raised at evaluator construction.
	ErrCriterionMismatch = errors.New("evaluation: criterion type mismatch")

	// ErrExpectedInvocationsRequired indicates expected invocations are
	// missing for a metric that requires them.
	ErrExpectedInvocationsRequired = errors.New("evaluation: expected invocations required")

	// ErrInferenceFailure indicates the agent runner raised while executing
	// a case.
	ErrInferenceFailure = errors.New("evaluation: inference failure")
)
