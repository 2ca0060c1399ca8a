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

import "strings"

// porterStem applies the classic Porter (1980) stemming algorithm to an
// ASCII word.
func porterStem(word string) string {
	word = strings.ToLower(word)
	if len(word) <= 2 {
		return word
	}
	word = step1a(word)
	word = step1b(word)
	word = step1c(word)
	word = step2(word)
	word = step3(word)
	word = step4(word)
	word = step5a(word)
	word = step5b(word)
	return word
}

func isConsonant(word string, i int) bool {
	switch word[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		if i == 0 {
			return true
		}
		return !isConsonant(word, i-1)
	default:
		return true
	}
}

// measure computes the Porter "m" value: the number of vowel-consonant
// transitions in the string.
func measure(stem string) int {
	m := 0
	prevVowel := false
	for i := range len(stem) {
		if isConsonant(stem, i) {
			if prevVowel {
				m++
			}
			prevVowel = false
		} else {
			prevVowel = true
		}
	}
	return m
}

func containsVowel(stem string) bool {
	for i := range len(stem) {
		if !isConsonant(stem, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(word string) bool {
	n := len(word)
	return n >= 2 && word[n-1] == word[n-2] && isConsonant(word, n-1)
}

// endsCVC reports whether the word ends consonant-vowel-consonant where the
// final consonant is not w, x, or y.
func endsCVC(word string) bool {
	n := len(word)
	if n < 3 {
		return false
	}
	last := word[n-1]
	return isConsonant(word, n-3) && !isConsonant(word, n-2) && isConsonant(word, n-1) &&
		last != 'w' && last != 'x' && last != 'y'
}

func replaceSuffix(word, suffix, replacement string) string {
	return word[:len(word)-len(suffix)] + replacement
}

func step1a(word string) string {
	switch {
	case strings.HasSuffix(word, "sses"):
		return replaceSuffix(word, "sses", "ss")
	case strings.HasSuffix(word, "ies"):
		return replaceSuffix(word, "ies", "i")
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s"):
		return replaceSuffix(word, "s", "")
	}
	return word
}

func step1b(word string) string {
	if strings.HasSuffix(word, "eed") {
		stem := replaceSuffix(word, "eed", "")
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return word
	}

	var stem string
	switch {
	case strings.HasSuffix(word, "ed"):
		stem = replaceSuffix(word, "ed", "")
	case strings.HasSuffix(word, "ing"):
		stem = replaceSuffix(word, "ing", "")
	default:
		return word
	}
	if !containsVowel(stem) {
		return word
	}

	switch {
	case strings.HasSuffix(stem, "at"):
		return stem + "e"
	case strings.HasSuffix(stem, "bl"):
		return stem + "e"
	case strings.HasSuffix(stem, "iz"):
		return stem + "e"
	case endsDoubleConsonant(stem):
		last := stem[len(stem)-1]
		if last != 'l' && last != 's' && last != 'z' {
			return stem[:len(stem)-1]
		}
		return stem
	case measure(stem) == 1 && endsCVC(stem):
		return stem + "e"
	}
	return stem
}

func step1c(word string) string {
	if strings.HasSuffix(word, "y") {
		stem := word[:len(word)-1]
		if containsVowel(stem) {
			return stem + "i"
		}
	}
	return word
}

var step2Rules = []struct{ suffix, replacement string }{
	{"ational", "ate"}, {"tional", "tion"}, {"enci", "ence"}, {"anci", "ance"},
	{"izer", "ize"}, {"abli", "able"}, {"alli", "al"}, {"entli", "ent"},
	{"eli", "e"}, {"ousli", "ous"}, {"ization", "ize"}, {"ation", "ate"},
	{"ator", "ate"}, {"alism", "al"}, {"iveness", "ive"}, {"fulness", "ful"},
	{"ousness", "ous"}, {"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
}

func step2(word string) string {
	for _, rule := range step2Rules {
		if strings.HasSuffix(word, rule.suffix) {
			stem := replaceSuffix(word, rule.suffix, "")
			if measure(stem) > 0 {
				return stem + rule.replacement
			}
			return word
		}
	}
	return word
}

var step3Rules = []struct{ suffix, replacement string }{
	{"icate", "ic"}, {"ative", ""}, {"alize", "al"}, {"iciti", "ic"},
	{"ical", "ic"}, {"ful", ""}, {"ness", ""},
}

func step3(word string) string {
	for _, rule := range step3Rules {
		if strings.HasSuffix(word, rule.suffix) {
			stem := replaceSuffix(word, rule.suffix, "")
			if measure(stem) > 0 {
				return stem + rule.replacement
			}
			return word
		}
	}
	return word
}

var step4Suffixes = []string{
	"al", "ance", "ence", "er", "ic", "able", "ible", "ant", "ement",
	"ment", "ent", "ion", "ou", "ism", "ate", "iti", "ous", "ive", "ize",
}

func step4(word string) string {
	for _, suffix := range step4Suffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := replaceSuffix(word, suffix, "")
		if measure(stem) <= 1 {
			return word
		}
		if suffix == "ion" && !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "t") {
			return word
		}
		return stem
	}
	return word
}

func step5a(word string) string {
	if !strings.HasSuffix(word, "e") {
		return word
	}
	stem := word[:len(word)-1]
	m := measure(stem)
	if m > 1 || (m == 1 && !endsCVC(stem)) {
		return stem
	}
	return word
}

func step5b(word string) string {
	if measure(word) > 1 && strings.HasSuffix(word, "ll") {
		return word[:len(word)-1]
	}
	return word
}
