// Package textsim scores short strings by trigram overlap, in the same way
// the pg_trgm extension computes similarity().
package textsim

import (
	"strings"
	"unicode"
)

// Trigrams returns the set of padded word trigrams of s. Words are runs of
// letters and digits; each word is lowercased and padded with two leading
// and one trailing space.
func Trigrams(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Similarity returns |A∩B| / |A∪B| over the trigram sets of a and b, in [0, 1].
// Two strings without any word characters have similarity 0.
func Similarity(a, b string) float64 {
	return similarity(Trigrams(a), Trigrams(b))
}

// Scorer scores many fields against one query without re-tokenizing it.
type Scorer struct {
	query map[string]struct{}
}

// NewScorer prepares a scorer for query.
func NewScorer(query string) *Scorer {
	return &Scorer{query: Trigrams(query)}
}

// Score returns the similarity of field to the query.
func (s *Scorer) Score(field string) float64 {
	return similarity(s.query, Trigrams(field))
}

// Best returns the highest similarity among fields.
func (s *Scorer) Best(fields ...string) float64 {
	best := 0.0
	for _, f := range fields {
		if f == "" {
			continue
		}
		if v := s.Score(f); v > best {
			best = v
		}
	}
	return best
}

func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
