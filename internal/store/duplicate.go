package store

import (
	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/textutil"
)

const (
	duplicateNameSimilarity = 0.85
	duplicateMaxMeters      = 150.0
)

// IsDuplicate reports whether a and b describe the same business: their
// names normalize equal or are at least 85% similar, and when both carry
// coordinates they sit within 150 m of each other.
func IsDuplicate(a, b place.Record) bool {
	normA := textutil.NormalizeName(a.Name)
	normB := textutil.NormalizeName(b.Name)
	if normA == "" || normB == "" {
		return false
	}
	if normA != normB && textutil.Similarity(a.Name, b.Name) < duplicateNameSimilarity {
		return false
	}
	if a.HasCoordinate() && b.HasCoordinate() {
		return geo.DistanceMeters(a.Coordinate, b.Coordinate) <= duplicateMaxMeters
	}
	return true
}

// IsDuplicate is the Store-bound form of the package function.
func (s *Store) IsDuplicate(a, b place.Record) bool {
	return IsDuplicate(a, b)
}
