package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"placematch/internal/geo"
	"placematch/internal/place"
)

const placeColumns = "id, name, lat, lon, address, state, display_location, category, status_tag, rating, rating_count, confidence, source, phone, external_id"

// Upsert inserts or replaces a record, assigning a UUID when ID is empty.
// Match outcome columns are preserved on update. It returns the stored id.
func (s *Store) Upsert(ctx context.Context, r place.Record) (string, error) {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	if err := upsertPlace(ctx, s.db, r, s.timestamp()); err != nil {
		return "", err
	}
	return r.ID, nil
}

// Import upserts records in one transaction and returns how many were written.
func (s *Store) Import(ctx context.Context, records []place.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := s.timestamp()
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			r.ID = uuid.NewString()
		}
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if err := upsertPlace(ctx, tx, r, ts); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := retryOnBusy(ctx, tx.Commit); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPlace(ctx context.Context, db execer, r place.Record, ts string) error {
	var lat, lon any
	if r.HasCoordinate() {
		lat, lon = r.Coordinate.Lat, r.Coordinate.Lon
	}
	err := retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO places (
                id, name, lat, lon, address, state, display_location, category, status_tag,
                rating, rating_count, confidence, source, phone, external_id, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                lat = excluded.lat,
                lon = excluded.lon,
                address = excluded.address,
                state = excluded.state,
                display_location = excluded.display_location,
                category = excluded.category,
                status_tag = excluded.status_tag,
                rating = excluded.rating,
                rating_count = excluded.rating_count,
                confidence = excluded.confidence,
                source = excluded.source,
                phone = excluded.phone,
                external_id = COALESCE(excluded.external_id, places.external_id),
                updated_at = excluded.updated_at`,
			r.ID, strings.TrimSpace(r.Name), lat, lon,
			nullableString(r.Address), nullableString(strings.ToUpper(r.State)), nullableString(r.Locality),
			nullableString(r.Category), nullableString(r.Status),
			nullableFloat(r.Rating), nullableInt(r.RatingCount), nullableFloat(r.Confidence),
			nullableString(r.Source), nullableString(r.Phone), nullableString(r.ExternalID),
			ts, ts,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert place %s: %w", r.ID, err)
	}
	return nil
}

// Get fetches one record by id.
func (s *Store) Get(ctx context.Context, id string) (*place.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+placeColumns+" FROM places WHERE id = ?", id)
	r, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	return r, nil
}

// PersistExternalID records the provider identifier for id.
func (s *Store) PersistExternalID(ctx context.Context, id, externalID string) error {
	res, err := s.exec(ctx,
		"UPDATE places SET external_id = ?, updated_at = ? WHERE id = ?",
		nullableString(externalID), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("persist external id for %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scanPlace(scanner interface{ Scan(dest ...any) error }) (*place.Record, error) {
	var (
		id, name                             string
		lat, lon, rating, confidence         sql.NullFloat64
		ratingCount                          sql.NullInt64
		address, state, locality, category   sql.NullString
		statusTag, source, phone, externalID sql.NullString
	)
	if err := scanner.Scan(
		&id, &name, &lat, &lon, &address, &state, &locality, &category, &statusTag,
		&rating, &ratingCount, &confidence, &source, &phone, &externalID,
	); err != nil {
		return nil, err
	}
	r := &place.Record{
		ID:         id,
		Name:       name,
		Address:    address.String,
		State:      state.String,
		Locality:   locality.String,
		Category:   category.String,
		Status:     statusTag.String,
		Source:     source.String,
		Phone:      phone.String,
		ExternalID: externalID.String,
	}
	if lat.Valid && lon.Valid {
		r.Coordinate = geo.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	if rating.Valid {
		v := rating.Float64
		r.Rating = &v
	}
	if ratingCount.Valid {
		v := int(ratingCount.Int64)
		r.RatingCount = &v
	}
	if confidence.Valid {
		v := confidence.Float64
		r.Confidence = &v
	}
	return r, nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
