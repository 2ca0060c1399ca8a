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

package rouge

import (
	"regexp"
	"strings"
)

var (
	nonAlphaNumRE = regexp.MustCompile(`[^a-z0-9]+`)
	spacesRE      = regexp.MustCompile(`\s+`)
	validTokenRE  = regexp.MustCompile(`^[a-z0-9]+$`)
)

// tokenizer replicates the tokenization used by google-research/rouge:
// lowercase, strip punctuation, split on whitespace, optionally stem tokens
// longer than three characters.
type tokenizer struct {
	useStemmer bool
}

func newTokenizer(useStemmer bool) *tokenizer {
	return &tokenizer{useStemmer: useStemmer}
}

func (t *tokenizer) Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlphaNumRE.ReplaceAllString(text, " ")

	parts := spacesRE.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if token == "" || !validTokenRE.MatchString(token) {
			continue
		}
		if t.useStemmer && len(token) > 3 {
			token = porterStem(token)
		}
		if token == "" || !validTokenRE.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
