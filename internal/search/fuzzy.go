// Package search provides fuzzy feast-name matching and a search
// service over a stored feast-name corpus. The scorer blends substring,
// word-overlap, n-gram and Levenshtein similarity; scores are on a 0-1
// scale and only comparable within one query.
package search

import (
	"sort"
	"strings"
)

// Match pairs a candidate name with its score for a query.
type Match struct {
	Name  string
	Score float64
}

// BestMatches scores every candidate against the query and returns the
// top n, highest score first. Zero-score candidates are dropped; ties
// keep candidate order.
func BestMatches(query string, candidates []string, n int) []Match {
	q := strings.ToLower(query)

	var matches []Match
	for _, candidate := range candidates {
		if score := score(q, strings.ToLower(candidate)); score > 0 {
			matches = append(matches, Match{Name: candidate, Score: score})
		}
	}

	stableSortByScore(matches)
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

// Score returns the fuzzy similarity of candidate to query, 0-1.
func Score(query, candidate string) float64 {
	return score(strings.ToLower(query), strings.ToLower(candidate))
}

// score expects both arguments already lowercased.
func score(query, candidate string) float64 {
	if query == candidate {
		return 1.0
	}

	// Substring containment dominates: a query embedded in a longer
	// candidate scores just under exact, decaying with the extra length.
	if strings.Contains(candidate, query) {
		return 0.9 - float64(len(candidate)-len(query))/float64(len(candidate))*0.1
	}
	if strings.Contains(query, candidate) {
		return 0.85
	}
	if strings.HasPrefix(candidate, query) {
		return 0.8
	}

	queryWords := strings.Fields(query)
	candidateWords := strings.Fields(candidate)
	if ws := wordOverlap(queryWords, candidateWords); ws > 0.5 {
		return ws * 0.7
	}

	bigram := ngramJaccard(query, candidate, 2)
	trigram := ngramJaccard(query, candidate, 3)
	combined := bigram*0.6 + trigram*0.4

	final := combined*0.4 + levenshteinScore(query, candidate)*0.6
	if final < 0.2 {
		return 0
	}
	return final
}

// wordOverlap is the fraction of query words that appear in (or
// contain) some candidate word.
func wordOverlap(queryWords, candidateWords []string) float64 {
	if len(queryWords) == 0 || len(candidateWords) == 0 {
		return 0
	}
	matched := 0
	for _, qw := range queryWords {
		for _, cw := range candidateWords {
			if strings.Contains(cw, qw) || strings.Contains(qw, cw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(queryWords))
}

// ngramJaccard is the Jaccard index of the two strings' character
// n-gram sets.
func ngramJaccard(s1, s2 string, n int) float64 {
	set1 := ngramSet(s1, n)
	set2 := ngramSet(s2, n)

	if len(set1) == 0 && len(set2) == 0 {
		return 1
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for g := range set1 {
		if _, ok := set2[g]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func ngramSet(s string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	runes := []rune(s)
	if len(runes) < n {
		set[s] = struct{}{}
		return set
	}
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// levenshteinScore normalizes edit distance into a 0-1 similarity.
func levenshteinScore(s1, s2 string) float64 {
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 1
	}
	d := float64(levenshtein(s1, s2)) / float64(maxLen)
	if d > 1 {
		d = 1
	}
	return 1 - d
}

// levenshtein computes edit distance over runes with a rolling row.
func levenshtein(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// stableSortByScore sorts descending by score, preserving candidate
// order on ties.
func stableSortByScore(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
