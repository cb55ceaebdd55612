package report

import (
	"errors"
	"fmt"
	"io"

	"placematch/internal/place"
)

// Paths names the three report files.
type Paths struct {
	Matched   string
	Review    string
	Unmatched string
}

// Counts tallies rows per outcome.
type Counts struct {
	Processed int
	Matched   int
	Review    int
	Unmatched int
	Errors    int
}

// Set routes decisions to the matched, review, and unmatched reports.
type Set struct {
	matched   *Writer
	review    *Writer
	unmatched *Writer
	counts    Counts
}

// Open creates all three reports. Files created before a failure are closed.
func Open(paths Paths) (*Set, error) {
	matched, err := Create(paths.Matched, CandidateHeader)
	if err != nil {
		return nil, err
	}
	review, err := Create(paths.Review, CandidateHeader)
	if err != nil {
		_ = matched.Close()
		return nil, err
	}
	unmatched, err := Create(paths.Unmatched, UnmatchedHeader)
	if err != nil {
		_ = matched.Close()
		_ = review.Close()
		return nil, err
	}
	return &Set{matched: matched, review: review, unmatched: unmatched}, nil
}

// NewSet writes the reports to arbitrary writers.
func NewSet(matched, review, unmatched io.Writer) *Set {
	return &Set{
		matched:   newWriter(matched, nil, CandidateHeader),
		review:    newWriter(review, nil, CandidateHeader),
		unmatched: newWriter(unmatched, nil, UnmatchedHeader),
	}
}

// Decision writes one row for d in the report matching its status.
func (s *Set) Decision(r place.Record, d place.Decision) error {
	s.counts.Processed++
	switch d.Status {
	case place.StatusMatched:
		s.counts.Matched++
		return s.matched.write(CandidateRow(r, d))
	case place.StatusReview:
		s.counts.Review++
		return s.review.write(CandidateRow(r, d))
	case place.StatusUnmatched:
		s.counts.Unmatched++
		return s.unmatched.write(UnmatchedRow(r, d.Reason))
	default:
		return fmt.Errorf("report: unexpected status %q", d.Status)
	}
}

// Failure writes an error row for r to the unmatched report.
func (s *Set) Failure(r place.Record, err error) error {
	s.counts.Processed++
	s.counts.Errors++
	return s.unmatched.write(UnmatchedRow(r, ErrorReason(err)))
}

// Counts returns the tallies so far.
func (s *Set) Counts() Counts { return s.counts }

// Paths returns the files backing the set. Writers without a file report "".
func (s *Set) Paths() Paths {
	return Paths{Matched: s.matched.Path(), Review: s.review.Path(), Unmatched: s.unmatched.Path()}
}

// Close flushes and closes every report.
func (s *Set) Close() error {
	return errors.Join(s.matched.Close(), s.review.Close(), s.unmatched.Close())
}
