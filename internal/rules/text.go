// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var sentenceSplit = regexp.MustCompile(`[.!?;\n]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"at": true, "by": true, "from": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "it": true, "this": true, "that": true,
	"we": true, "i": true, "you": true, "they": true, "he": true, "she": true,
	"our": true, "my": true, "your": true, "their": true, "as": true, "so": true,
	"will": true, "have": true, "has": true, "had": true, "do": true, "does": true,
	"about": true, "some": true, "into": true, "also": true, "just": true,
	"then": true, "than": true, "there": true, "what": true, "which": true,
	"them": true, "need": true, "should": true, "must": true, "can": true,
}

// tokenize splits lowercase text into letter/digit words.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// sentences splits text on terminal punctuation and newlines, dropping blanks.
func sentences(s string) []string {
	var out []string
	for _, part := range sentenceSplit.Split(s, -1) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*•"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// capitalize upper-cases the first rune.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

var spaceRun = regexp.MustCompile(`\s+`)

// tidy collapses whitespace and trims stray punctuation left by stripping.
func tidy(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;:-")
}
