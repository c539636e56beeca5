package labels

import (
	"strings"
	"unicode"
)

// LevenshteinDistance returns the number of single-rune insertions, deletions or
// substitutions needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// normalizeName lowercases name, strips a leading "1.2"-style number and collapses
// whitespace and hyphen variants, so "1.3  Objects in Python" matches "objects in python".
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if rest := strings.TrimLeft(name, "0123456789."); len(rest) < len(name) && rest != "" && unicode.IsSpace(rune(rest[0])) {
		name = rest
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '\u2010', '\u2011', '\u2012', '\u2013':
			return '-'
		}
		return unicode.ToLower(r)
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// closest returns the candidate nearest to name after normalisation, if its distance
// is at most maxDistance. Ties go to the earlier candidate.
func closest(name string, candidates []string, maxDistance int) (string, bool) {
	target := normalizeName(name)
	if target == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, c := range candidates {
		d := LevenshteinDistance(target, normalizeName(c))
		if d == 0 {
			return c, true
		}
		if d <= maxDistance && (bestDist < 0 || d < bestDist) {
			best, bestDist = c, d
		}
	}
	return best, bestDist >= 0
}
