// Package match implements the approximate name matching used to map a
// possibly misspelled spectate request onto a known player name. The
// similarity measure is the classic sequence-matcher ratio 2*M/T, where
// M counts characters covered by recursively found longest matching
// blocks and T is the combined length of both strings.
package match

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the similarity of a and b in [0, 1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// Closest returns up to n candidates whose similarity to query is at
// least cutoff, best match first. Equal scores resolve in lexicographic
// order. The returned slice is empty when nothing clears the cutoff.
func Closest(query string, candidates []string, n int, cutoff float64) []string {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	// Lexicographic pre-sort so the stable sort below breaks ties
	// deterministically.
	pool := make([]string, len(candidates))
	copy(pool, candidates)
	sort.Strings(pool)

	type scored struct {
		name  string
		score float64
	}

	m := difflib.NewMatcher(nil, runes(query))
	var hits []scored
	for _, candidate := range pool {
		m.SetSeq1(runes(candidate))
		// Cheap upper bounds first, the full ratio only when they pass.
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff {
			if score := m.Ratio(); score >= cutoff {
				hits = append(hits, scored{candidate, score})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > n {
		hits = hits[:n]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func runes(s string) []string {
	return strings.Split(s, "")
}
