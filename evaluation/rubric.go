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

// Rubric is a single testable criterion expressed in natural language,
// evaluated yes/no by the judge.
type Rubric struct {
	ID          string        `json:"rubric_id" yaml:"rubric_id" mapstructure:"rubric_id"`
	Description string        `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Type        string        `json:"type,omitempty" yaml:"type" mapstructure:"type"`
	Content     RubricContent `json:"rubric_content" yaml:"rubric_content" mapstructure:"rubric_content"`
}

// RubricContent holds the rubric's testable property.
type RubricContent struct {
	TextProperty string `json:"text_property" yaml:"text_property" mapstructure:"text_property"`
}

// RubricScore is the judge's verdict for one rubric. Score is nil when the
// judge produced no usable verdict.
type RubricScore struct {
	RubricID  string   `json:"rubric_id"`
	Rationale string   `json:"rationale,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}
