package review

import (
	"strings"
	"unicode"
)

// SimilarityThreshold is the minimum overlap coefficient between two
// normalized token sets for their messages to count as equivalent.
const SimilarityThreshold = 0.6

// Similarity decides whether two finding messages describe the same issue.
type Similarity func(a, b string) bool

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"be": true, "been": true, "this": true, "that": true, "these": true,
	"it": true, "its": true, "of": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "and": true, "or": true, "with": true, "by": true,
	"from": true, "as": true, "can": true, "could": true, "may": true,
	"might": true, "should": true, "will": true, "which": true, "here": true,
	"there": true, "when": true, "so": true, "if": true, "not": true,
}

// Similar is the default Similarity. Messages are equivalent when their
// normalized forms are equal or the overlap
// coefficient |A∩B| / min(|A|,|B|) of their token sets reaches
// SimilarityThreshold.
func Similar(a, b string) bool {
	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return len(ta) == len(tb)
	}

	na := strings.Join(ta, " ")
	nb := strings.Join(tb, " ")
	if na == nb {
		return true
	}

	return overlap(ta, tb) >= SimilarityThreshold
}

// overlap returns the overlap coefficient of the two token sets.
func overlap(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}

	minLen := len(setA)
	if len(setB) < minLen {
		minLen = len(setB)
	}
	return float64(shared) / float64(minLen)
}

// tokens lowercases s, splits on anything that is not a letter or digit,
// drops stopwords and folds simple plurals.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}
