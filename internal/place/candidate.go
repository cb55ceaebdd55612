package place

import (
	"strings"

	"placematch/internal/geo"
)

// Method names the search tier that produced a candidate.
type Method string

const (
	MethodPhone  Method = "phone"
	MethodNearby Method = "nearby"
	MethodText   Method = "text"
)

// Priority orders methods when two tiers return the same external place.
func (m Method) Priority() int {
	switch m {
	case MethodPhone:
		return 3
	case MethodText:
		return 2
	case MethodNearby:
		return 1
	default:
		return 0
	}
}

// Candidate is an immutable provider result.
type Candidate struct {
	ExternalID string          `json:"external_id"`
	Name       string          `json:"name"`
	Address    string          `json:"address,omitempty"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Method     Method          `json:"method"`
}

// HasCoordinate reports whether the provider returned a location.
func (c Candidate) HasCoordinate() bool {
	return c.Coordinate != nil && c.Coordinate.Valid()
}

// LikelyClosed reports whether the provider flagged the place as closed in
// its display name.
func (c Candidate) LikelyClosed() bool {
	name := strings.ToLower(c.Name)
	return strings.Contains(name, "permanently closed") || strings.Contains(name, "closed permanently")
}

// ScoredCandidate wraps a candidate with its confidence score and the reason
// tags that produced it, in the order they were applied.
type ScoredCandidate struct {
	Candidate      Candidate `json:"candidate"`
	Score          int       `json:"score"`
	DistanceMeters *float64  `json:"distance_meters,omitempty"`
	Method         Method    `json:"method"`
	Reasons        []string  `json:"reasons"`
}
