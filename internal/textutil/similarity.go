package textutil

import "strings"

const containmentSimilarity = 0.9

// Jaccard returns |a∩b| / |a∪b|. Either set being empty yields 0.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if b.Has(token) {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similarity compares two names or addresses on a 0..1 scale. Equal
// normalized strings score 1, containment of one in the other scores 0.9,
// and anything else falls back to the Jaccard index of their tokens.
func Similarity(a, b string) float64 {
	normA := NormalizeName(a)
	normB := NormalizeName(b)
	if normA == "" || normB == "" {
		return 0
	}
	if normA == normB {
		return 1
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return containmentSimilarity
	}
	return Jaccard(Tokens(a), Tokens(b))
}

// NamesOverlap reports whether one normalized name equals or contains the
// other. Blank names never overlap.
func NamesOverlap(a, b string) bool {
	normA := NormalizeName(a)
	normB := NormalizeName(b)
	if normA == "" || normB == "" {
		return false
	}
	return strings.Contains(normA, normB) || strings.Contains(normB, normA)
}
