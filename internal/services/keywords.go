package services

import (
	"sort"
	"strings"
)

// DefaultMaxKeywords caps how many terms ExtractKeywords returns when the
// caller passes a non-positive limit.
const DefaultMaxKeywords = 12

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"their": {}, "there": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize lowercases text, maps every non-alphanumeric rune to a space and
// splits on whitespace. Used by both keyword extraction and the judge's
// drift gate.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)

	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, lowered)

	return strings.Fields(mapped)
}

// ExtractKeywords returns the most frequent salient terms of a text, most
// frequent first. Tokens of length <= 2 and stopwords are dropped.
// Frequency ties keep first-seen order (stable sort). This is a plain
// frequency extractor, not TF-IDF; it is deliberately simple and
// deterministic.
func ExtractKeywords(text string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	if text == "" {
		return []string{}
	}

	counts := make(map[string]int)
	var order []string

	for _, token := range Tokenize(text) {
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		if _, seen := counts[token]; !seen {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	result := make([]string, len(order))
	copy(result, order)
	return result
}

// TokenJaccard measures token-set overlap between two texts in [0,1].
// Either side tokenizing to nothing yields 0.
func TokenJaccard(a, b string) float64 {
	setA := make(map[string]struct{})
	for _, token := range Tokenize(a) {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, token := range Tokenize(b) {
		setB[token] = struct{}{}
	}

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
