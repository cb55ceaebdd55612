package resolver

import (
	"placematch/internal/place"
	"placematch/internal/textutil"
)

// DuplicateFunc is a caller-supplied predicate for records that describe the
// same business.
type DuplicateFunc func(a, b place.Record) bool

// Conflicts reports whether target collides with any accepted record: the
// normalized names are equal or one contains the other, or isDuplicate says
// so. A nil isDuplicate only checks names.
func Conflicts(target place.Record, accepted []place.Record, isDuplicate DuplicateFunc) bool {
	for _, existing := range accepted {
		if textutil.NamesOverlap(target.Name, existing.Name) {
			return true
		}
		if isDuplicate != nil && isDuplicate(target, existing) {
			return true
		}
	}
	return false
}

// nameSet tracks normalized names accepted within one batch.
type nameSet map[string]struct{}

func newNameSet(records []place.Record) nameSet {
	set := make(nameSet, len(records))
	for _, r := range records {
		set.add(r.Name)
	}
	return set
}

func (s nameSet) has(name string) bool {
	key := textutil.NormalizeName(name)
	if key == "" {
		return false
	}
	_, ok := s[key]
	return ok
}

func (s nameSet) add(name string) {
	if key := textutil.NormalizeName(name); key != "" {
		s[key] = struct{}{}
	}
}
