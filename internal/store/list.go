package store

import (
	"context"
	"fmt"
	"strings"

	"placematch/internal/place"
)

const defaultPageSize = 500

// Filter selects rows for List and Count.
type Filter struct {
	// State matches the region column case-insensitively; "" or "all" matches every row.
	State string
	// Status is all, matched, review, unmatched, or error. Unmatched also
	// selects rows that were never matched.
	Status string
	// IDs restricts the result to these ids when non-empty.
	IDs []string
	// Offset skips rows; Limit caps the total (0 means no cap).
	Offset int
	Limit  int
	// PageSize bounds each underlying query.
	PageSize int
}

func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if state := strings.ToUpper(strings.TrimSpace(f.State)); state != "" && state != "ALL" {
		clauses = append(clauses, "state = ?")
		args = append(args, state)
	}
	switch status := strings.ToLower(strings.TrimSpace(f.Status)); status {
	case "", "all":
	case string(place.StatusUnmatched):
		clauses = append(clauses, "(match_status IS NULL OR match_status = ?)")
		args = append(args, status)
	default:
		clauses = append(clauses, "match_status = ?")
		args = append(args, status)
	}
	if len(f.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.IDs)), ", ")
		clauses = append(clauses, "id IN ("+placeholders+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns matching records ordered by id, fetched a page at a time.
func (s *Store) List(ctx context.Context, f Filter) ([]place.Record, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	where, args := f.where()
	query := "SELECT " + placeColumns + " FROM places" + where + " ORDER BY id LIMIT ? OFFSET ?"

	var out []place.Record
	offset := f.Offset
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size := pageSize
		if f.Limit > 0 {
			if remaining := f.Limit - len(out); remaining < size {
				size = remaining
			}
		}
		if size <= 0 {
			break
		}
		page, err := s.listPage(ctx, query, append(append([]any{}, args...), size, offset))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		offset += len(page)
		if len(page) < size {
			break
		}
	}
	return out, nil
}

func (s *Store) listPage(ctx context.Context, query string, args []any) ([]place.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var page []place.Record
	for rows.Next() {
		r, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		page = append(page, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return page, nil
}

// Count returns how many rows match f, ignoring paging fields.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM places"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count places: %w", err)
	}
	return n, nil
}
