package search

import (
	"context"

	"placematch/internal/geo"
	"placematch/internal/place"
)

// Provider looks up candidate places in an external index. Each method
// performs a single upstream request; an empty slice means no results.
type Provider interface {
	Name() string
	FindByPhone(ctx context.Context, phone string) ([]place.Candidate, error)
	FindNearby(ctx context.Context, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error)
	FindByText(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error)
}
