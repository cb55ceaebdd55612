package resolver

import (
	"time"

	"placematch/internal/place"
)

// entry is a cached outcome. A nil record marks a negative result.
type entry struct {
	record   *place.Record
	storedAt time.Time
}

func (e entry) fresh(now time.Time, positiveTTL, negativeTTL time.Duration) bool {
	ttl := negativeTTL
	if e.record != nil {
		ttl = positiveTTL
	}
	return now.Sub(e.storedAt) < ttl
}

// lookup consults the id cache, then the external-id cache through any
// external id known for the definition. Callers hold s.mu.
func (s *Service) lookup(def Definition, now time.Time) (entry, bool) {
	if e, ok := s.byID[def.ID]; ok && e.fresh(now, s.opts.PositiveTTL, s.opts.NegativeTTL) {
		return e, true
	}
	for _, externalID := range []string{def.ExternalID, s.externalIDs[def.ID]} {
		if externalID == "" {
			continue
		}
		e, ok := s.byExternal[externalID]
		if !ok || e.record == nil || !e.fresh(now, s.opts.PositiveTTL, s.opts.NegativeTTL) {
			continue
		}
		shared := *e.record
		shared.ID = def.ID
		e = entry{record: &shared, storedAt: e.storedAt}
		s.byID[def.ID] = e
		return e, true
	}
	return entry{}, false
}

// store records an outcome for def. Callers hold s.mu.
func (s *Service) store(def Definition, rec *place.Record, at time.Time) {
	e := entry{record: rec, storedAt: at}
	s.byID[def.ID] = e
	if rec != nil && rec.ExternalID != "" {
		s.byExternal[rec.ExternalID] = e
		s.externalIDs[def.ID] = rec.ExternalID
	}
}

func cloneRecord(rec *place.Record) *place.Record {
	if rec == nil {
		return nil
	}
	out := *rec
	return &out
}
