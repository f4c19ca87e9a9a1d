package matcher

import (
	"sort"
	"strings"
)

// TokenSetRatio scores two strings in [0,100] on their whitespace token sets.
// Word order is ignored and a string whose tokens are a subset of the
// other's scores 100. Comparison is case-sensitive.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var intersect, diffAB, diffBA []string
	for t := range tokensA {
		if tokensB[t] {
			intersect = append(intersect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range tokensB {
		if !tokensA[t] {
			diffBA = append(diffBA, t)
		}
	}

	if len(intersect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sort.Strings(diffAB)
	sort.Strings(diffBA)
	joinedAB := []rune(strings.Join(diffAB, " "))
	joinedBA := []rune(strings.Join(diffBA, " "))
	abLen := len(joinedAB)
	baLen := len(joinedBA)

	sectLen := joinedLen(intersect)
	sep := 0
	if sectLen != 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + abLen
	sectBALen := sectLen + sep + baLen

	result := normalizedSimilarity(indelDistance(joinedAB, joinedBA), sectABLen+sectBALen)
	if sectLen == 0 {
		return result
	}

	// sect vs sect+diff differ only by the diff and its separator.
	sectAB := normalizedSimilarity(sep+abLen, sectLen+sectABLen)
	sectBA := normalizedSimilarity(sep+baLen, sectLen+sectBALen)

	return max(result, sectAB, sectBA)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// joinedLen is the rune length of tokens joined by single spaces.
func joinedLen(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := len(tokens) - 1
	for _, t := range tokens {
		n += len([]rune(t))
	}
	return n
}

func normalizedSimilarity(dist, lenSum int) float64 {
	if lenSum == 0 {
		return 100
	}
	return 100 - 100*float64(dist)/float64(lenSum)
}

// indelDistance counts insertions and deletions needed to turn a into b,
// which is len(a)+len(b)-2*LCS(a,b).
func indelDistance(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return len(a) + len(b)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return len(a) + len(b) - 2*prev[len(b)]
}
