package locus

// EditRatio returns the normalized Levenshtein similarity of two sequences,
// (len(a)+len(b)-d)/(len(a)+len(b)), where d is the edit distance with unit
// cost insertions and deletions and a substitution cost of 2. Identical
// sequences (including two empty ones) score 1.0.
func EditRatio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	d := indelDistance(a, b)
	return float64(total-d) / float64(total)
}

// indelDistance computes the weighted edit distance using two DP rows.
func indelDistance(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
