package matcher

import (
	"fmt"

	"placematch/internal/place"
)

// Default thresholds.
const (
	DefaultMinScore          = 6
	DefaultAmbiguityGap      = 2
	DefaultFarDistanceMeters = 1000.0
)

// Thresholds tune the classifier.
type Thresholds struct {
	MinScore          int
	AmbiguityGap      int
	FarDistanceMeters float64
}

// DefaultThresholds returns minimum score 6, gap 2, and a 1000m ceiling.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinScore:          DefaultMinScore,
		AmbiguityGap:      DefaultAmbiguityGap,
		FarDistanceMeters: DefaultFarDistanceMeters,
	}
}

// Classify turns a list sorted by descending score into a decision. It
// depends only on the top score, the runner-up score, the top distance, and
// the thresholds.
func Classify(scored []place.ScoredCandidate, t Thresholds) place.Decision {
	if len(scored) == 0 {
		return place.Decision{Status: place.StatusUnmatched, Reason: "no-candidates"}
	}
	best := scored[0]
	decision := decisionFrom(best)
	if best.Score < t.MinScore {
		decision.Status = place.StatusUnmatched
		decision.Reason = fmt.Sprintf("low-score:%d", best.Score)
		return decision
	}

	ambiguous := len(scored) > 1 && best.Score-scored[1].Score < t.AmbiguityGap
	far := best.DistanceMeters != nil && *best.DistanceMeters > t.FarDistanceMeters
	if ambiguous || far {
		decision.Status = place.StatusReview
		return decision
	}
	decision.Status = place.StatusMatched
	return decision
}

func decisionFrom(best place.ScoredCandidate) place.Decision {
	candidate := best.Candidate
	score := best.Score
	reasons := append([]string(nil), best.Reasons...)
	return place.Decision{
		Candidate:      &candidate,
		Score:          &score,
		DistanceMeters: best.DistanceMeters,
		Method:         best.Method,
		Reasons:        reasons,
	}
}
