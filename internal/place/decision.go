package place

import (
	"math"
	"strings"
)

// Status is the outcome of classifying a scored candidate list.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusReview    Status = "review"
	StatusUnmatched Status = "unmatched"
	StatusError     Status = "error"
)

// Decision is the verdict for one record. Candidate and the score fields are
// set whenever at least one candidate was scored, including unmatched
// low-score verdicts kept for diagnostics.
type Decision struct {
	Status         Status     `json:"status"`
	Candidate      *Candidate `json:"candidate,omitempty"`
	Score          *int       `json:"score,omitempty"`
	DistanceMeters *float64   `json:"distance_meters,omitempty"`
	Method         Method     `json:"method,omitempty"`
	Reasons        []string   `json:"reasons,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// ExternalID returns the chosen candidate's identifier, or "".
func (d Decision) ExternalID() string {
	if d.Candidate == nil {
		return ""
	}
	return d.Candidate.ExternalID
}

// RoundedDistance returns the distance in whole meters when known.
func (d Decision) RoundedDistance() (int, bool) {
	if d.DistanceMeters == nil || math.IsNaN(*d.DistanceMeters) || math.IsInf(*d.DistanceMeters, 0) {
		return 0, false
	}
	return int(math.Round(*d.DistanceMeters)), true
}

// ReasonSummary joins the reason tags with "|", appending the unmatched
// diagnostic when present.
func (d Decision) ReasonSummary() string {
	reasons := append([]string(nil), d.Reasons...)
	if d.Reason != "" {
		reasons = append(reasons, d.Reason)
	}
	return strings.Join(reasons, "|")
}
