// Package text provides the tokenizer shared by the lexical scorer, the
// corpus statistics builder, and the diversity selector's shingle
// similarity. A single definition of punctuation, casing, and stop words
// here keeps document-frequency construction, per-candidate term frequency,
// query tokenization, and shingle generation consistent — duplicating any
// of these with a drift is a bug class (see DESIGN.md).
package text

import "strings"

// MinTokenLength is the minimum character count for a token to survive
// filtering. Single-character tokens add noise without search value.
const MinTokenLength = 2

// DefaultShingleSize is the n-gram width used for Jaccard similarity.
const DefaultShingleSize = 3

// punctuation is replaced with spaces before splitting on whitespace.
const punctuation = "`~!@#$%^&*()-_=+[]{};:'\",.<>/?\\|"

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "of": {},
	"to": {}, "in": {}, "on": {}, "for": {}, "with": {}, "is": {}, "it": {},
	"as": {}, "at": {}, "by": {}, "be": {}, "are": {}, "was": {}, "were": {},
	"this": {}, "that": {}, "from": {}, "we": {}, "you": {}, "they": {},
	"i": {}, "me": {}, "my": {}, "your": {},
}

// IsStopword reports whether term is a member of the fixed stop-word set.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, s)
}

// Tokenize lowercases text, replaces punctuation with spaces, splits on
// whitespace, and drops empty strings, tokens shorter than
// MinTokenLength, and stop words. Ordering is preserved so callers can
// build shingles from the result.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	s = stripPunctuation(s)
	fields := strings.Fields(s)

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < MinTokenLength {
			continue
		}
		if IsStopword(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Shingles slides a window of size n over tokens and returns the set of
// space-joined n-grams. Empty if there are fewer than n tokens.
func Shingles(tokens []string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	if n <= 0 || len(tokens) < n {
		return set
	}
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}

// JaccardSimilarity computes the Jaccard index of the 3-shingle sets of a
// and b: |A∩B|/|A∪B|, 0 when both sets are empty.
func JaccardSimilarity(a, b string) float64 {
	shinglesA := Shingles(Tokenize(a), DefaultShingleSize)
	shinglesB := Shingles(Tokenize(b), DefaultShingleSize)
	return jaccard(shinglesA, shinglesB)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
