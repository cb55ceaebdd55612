package logging

import "strings"

// ProgressSampler thins per-record progress logs during long batch runs. It
// emits when the completed fraction crosses a bucket boundary or when the
// phase changes.
type ProgressSampler struct {
	bucketSize float64
	lastPhase  string
	lastBucket int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percent. Non-positive widths fall back to 10%.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress at done/total in phase is worth a line.
// An unknown total (<= 0) only logs phase changes. The final record always
// logs.
func (s *ProgressSampler) ShouldLog(done, total int, phase string) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	emit := false
	if phase != "" && phase != s.lastPhase {
		s.lastPhase = phase
		s.lastBucket = -1
		emit = true
	}
	if total <= 0 || done < 0 {
		return emit
	}
	percent := float64(done) / float64(total) * 100
	bucket := int(percent / s.bucketSize)
	if done >= total {
		bucket = int(100/s.bucketSize) + 1
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state before a new run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastPhase = ""
	s.lastBucket = -1
}
