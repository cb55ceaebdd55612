package matcher

import (
	"sort"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/textutil"
)

// Dedupe keeps one candidate per external id, preferring the better one per
// IsBetterCandidate. First-seen order is preserved. Candidates without an id
// are dropped.
func Dedupe(candidates []place.Candidate) []place.Candidate {
	index := make(map[string]int, len(candidates))
	out := make([]place.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ExternalID == "" {
			continue
		}
		if i, ok := index[c.ExternalID]; ok {
			if IsBetterCandidate(c, out[i]) {
				out[i] = c
			}
			continue
		}
		index[c.ExternalID] = len(out)
		out = append(out, c)
	}
	return out
}

// IsBetterCandidate breaks ties between two results for the same place:
// method priority (phone, text, nearby), then the longer address, then
// having a coordinate.
func IsBetterCandidate(next, current place.Candidate) bool {
	if np, cp := next.Method.Priority(), current.Method.Priority(); np != cp {
		return np > cp
	}
	if nl, cl := len(next.Address), len(current.Address); nl != cl {
		return nl > cl
	}
	return next.HasCoordinate() && !current.HasCoordinate()
}

// target caches the derived fields of the record being matched.
type target struct {
	record    place.Record
	hasCoord  bool
	zip       string
	streetNum string
}

func newTarget(r place.Record) target {
	zip, ok := textutil.ExtractZip(r.Address)
	if !ok {
		zip, _ = textutil.ExtractZip(r.Locality)
	}
	num, _ := textutil.ExtractStreetNumber(r.Address)
	return target{record: r, hasCoord: r.HasCoordinate(), zip: zip, streetNum: num}
}

// Score dedupes candidates and scores each against r, returning them sorted
// by descending score. Equal scores keep discovery order.
func Score(r place.Record, candidates []place.Candidate) []place.ScoredCandidate {
	t := newTarget(r)
	deduped := Dedupe(candidates)
	scored := make([]place.ScoredCandidate, 0, len(deduped))
	for _, c := range deduped {
		scored = append(scored, t.score(c))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ScoreOne scores a single candidate against r.
func ScoreOne(r place.Record, c place.Candidate) place.ScoredCandidate {
	return newTarget(r).score(c)
}

func (t target) score(c place.Candidate) place.ScoredCandidate {
	sc := place.ScoredCandidate{Candidate: c, Method: c.Method, Reasons: []string{}}
	add := func(points int, reason string) {
		sc.Score += points
		sc.Reasons = append(sc.Reasons, reason)
	}

	if c.Method == place.MethodPhone {
		add(3, "phone")
	}

	if t.hasCoord && c.HasCoordinate() {
		d := geo.DistanceMeters(t.record.Coordinate, *c.Coordinate)
		sc.DistanceMeters = &d
		switch {
		case d < 50:
			add(4, "dist<50m")
		case d < 100:
			add(3, "dist<100m")
		case d < 250:
			add(2, "dist<250m")
		case d < 500:
			add(1, "dist<500m")
		}
	}

	switch name := textutil.Similarity(t.record.Name, c.Name); {
	case name >= 0.95:
		add(4, "name=exact")
	case name >= 0.85:
		add(3, "name~high")
	case name >= 0.7:
		add(2, "name~med")
	case name >= 0.55:
		add(1, "name~low")
	}

	switch addr := textutil.Similarity(t.record.Address, c.Address); {
	case addr >= 0.7:
		add(2, "addr~high")
	case addr >= 0.5:
		add(1, "addr~med")
	}

	if t.streetNum != "" {
		if num, ok := textutil.ExtractStreetNumber(c.Address); ok && num == t.streetNum {
			add(2, "addr-num")
		}
	}

	if t.zip != "" {
		if zip, ok := textutil.ExtractZip(c.Address); ok && zip == t.zip {
			add(2, "zip")
		}
	}

	return sc
}
