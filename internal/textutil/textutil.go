// Package textutil provides text cleaning and n-gram helpers for feature extraction.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespaces collapses every whitespace run (newlines included) to a single space.
func NormalizeWhitespaces(text string) string {
	return whitespaceRe.ReplaceAllString(text, " ")
}

// Clean returns text in NFC form with whitespace collapsed and trimmed.
// It is the covered-text fallback for n-gram attributes without a feature.
func Clean(text string) string {
	return strings.TrimSpace(NormalizeWhitespaces(norm.NFC.String(text)))
}

// NgramSep joins the values of one n-gram window.
const NgramSep = "_"

// Ngrams slides a window of size n over values and joins each window with NgramSep.
// Fewer than n values yield nil.
func Ngrams(values []string, n int) []string {
	if n < 1 || len(values) < n {
		return nil
	}
	res := make([]string, 0, len(values)-n+1)
	for i := 0; i <= len(values)-n; i++ {
		res = append(res, strings.Join(values[i:i+n], NgramSep))
	}
	return res
}
