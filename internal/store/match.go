package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"placematch/internal/place"
)

// MatchPayload is the JSON stored with a row after an applied match.
type MatchPayload struct {
	Status           place.Status `json:"status"`
	ExternalID       string       `json:"google_place_id,omitempty"`
	CandidateID      string       `json:"google_match_place_id,omitempty"`
	CandidateName    string       `json:"google_match_name,omitempty"`
	CandidateAddress string       `json:"google_match_address,omitempty"`
	MapsURL          string       `json:"google_match_maps_url,omitempty"`
	Score            *int         `json:"score,omitempty"`
	DistanceMeters   *int         `json:"distance_m,omitempty"`
	Method           place.Method `json:"method,omitempty"`
	Reasons          string       `json:"reasons,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// PayloadFor builds the stored payload for d. ExternalID is only set when
// the decision matched; review rows keep the candidate for a human.
func PayloadFor(d place.Decision) MatchPayload {
	p := MatchPayload{
		Status:  d.Status,
		Score:   d.Score,
		Method:  d.Method,
		Reasons: d.ReasonSummary(),
	}
	if c := d.Candidate; c != nil {
		p.CandidateID = c.ExternalID
		p.CandidateName = c.Name
		p.CandidateAddress = c.Address
		p.MapsURL = place.MapsURL(c.ExternalID)
		if d.Status == place.StatusMatched {
			p.ExternalID = c.ExternalID
		}
	}
	if meters, ok := d.RoundedDistance(); ok {
		p.DistanceMeters = &meters
	}
	return p
}

// RecordMatch stores the outcome of matching id. A matched decision also
// sets the row's external id.
func (s *Store) RecordMatch(ctx context.Context, id string, d place.Decision) error {
	payload := PayloadFor(d)
	return s.writeOutcome(ctx, id, payload, payload.ExternalID)
}

// RecordError stores a failed match attempt for id.
func (s *Store) RecordError(ctx context.Context, id, message string) error {
	return s.writeOutcome(ctx, id, MatchPayload{Status: place.StatusError, Error: strings.TrimSpace(message)}, "")
}

func (s *Store) writeOutcome(ctx context.Context, id string, payload MatchPayload, externalID string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode match payload: %w", err)
	}
	ts := s.timestamp()
	res, err := s.exec(ctx,
		`UPDATE places SET
            match_status = ?,
            match_payload = ?,
            external_id = COALESCE(?, external_id),
            matched_at = ?,
            updated_at = ?
        WHERE id = ?`,
		string(payload.Status), string(data), nullableString(externalID), ts, ts, id)
	if err != nil {
		return fmt.Errorf("record match for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// MatchOutcome returns the last recorded payload for id, or nil when the
// row was never matched.
func (s *Store) MatchOutcome(ctx context.Context, id string) (*MatchPayload, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT match_payload FROM places WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read match payload for %s: %w", id, err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var payload MatchPayload
	if err := json.Unmarshal([]byte(raw.String), &payload); err != nil {
		return nil, fmt.Errorf("decode match payload for %s: %w", id, err)
	}
	return &payload, nil
}
