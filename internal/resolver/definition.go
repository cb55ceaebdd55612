package resolver

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/textutil"
)

// DefaultSearchSpan is the region size, in degrees, around a definition's anchor.
const DefaultSearchSpan = 0.18

// Definition is a curated place that the index may not surface on its own.
type Definition struct {
	ID                string
	Name              string
	ExternalID        string
	Anchor            geo.Coordinate
	Status            string
	Rating            *float64
	RatingCount       *int
	Confidence        *float64
	FallbackAddress   string
	SearchQuery       string
	SearchSpan        float64
	AllowsBroadSearch bool
}

type definitionFile struct {
	Places []definitionEntry `toml:"place"`
}

type definitionEntry struct {
	ID                string   `toml:"id"`
	Name              string   `toml:"name"`
	ExternalID        string   `toml:"external_id"`
	Lat               *float64 `toml:"lat"`
	Lon               *float64 `toml:"lon"`
	Status            string   `toml:"status"`
	Rating            *float64 `toml:"rating"`
	RatingCount       *int     `toml:"rating_count"`
	Confidence        *float64 `toml:"confidence"`
	Address           string   `toml:"address"`
	SearchQuery       string   `toml:"search_query"`
	SearchSpan        float64  `toml:"search_span"`
	AllowsBroadSearch *bool    `toml:"allows_broad_search"`
}

// LoadDefinitions reads [[place]] tables from a TOML file. Every invalid
// entry is reported; none are dropped silently.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes definitions from TOML.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var file definitionFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	defs := make([]Definition, 0, len(file.Places))
	var errs []error
	seen := make(map[string]struct{}, len(file.Places))
	for i, entry := range file.Places {
		def, err := entry.definition()
		if err != nil {
			errs = append(errs, fmt.Errorf("place %d: %w", i+1, err))
			continue
		}
		if _, dup := seen[def.ID]; dup {
			errs = append(errs, fmt.Errorf("place %d: %w: duplicate id %q", i+1, place.ErrInvalidID, def.ID))
			continue
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs, errors.Join(errs...)
}

func (e definitionEntry) definition() (Definition, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return Definition{}, errors.New("name is required")
	}
	if e.Lat == nil || e.Lon == nil {
		return Definition{}, fmt.Errorf("%s: lat and lon are required", name)
	}
	anchor := geo.Coordinate{Lat: *e.Lat, Lon: *e.Lon}
	if !anchor.Valid() {
		return Definition{}, fmt.Errorf("%s: coordinate %s out of range", name, anchor)
	}
	id := strings.TrimSpace(e.ID)
	if id == "" {
		// Derived ids stay stable across runs so caches keep working.
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(name+"@"+anchor.String())).String()
	}
	def := Definition{
		ID:                id,
		Name:              name,
		ExternalID:        strings.TrimSpace(e.ExternalID),
		Anchor:            anchor,
		Status:            strings.ToLower(strings.TrimSpace(e.Status)),
		Rating:            e.Rating,
		RatingCount:       e.RatingCount,
		Confidence:        e.Confidence,
		FallbackAddress:   strings.TrimSpace(e.Address),
		SearchQuery:       strings.TrimSpace(e.SearchQuery),
		SearchSpan:        e.SearchSpan,
		AllowsBroadSearch: e.AllowsBroadSearch == nil || *e.AllowsBroadSearch,
	}
	if def.Status == "" {
		def.Status = "yes"
	}
	return def.withDefaults(), nil
}

func (d Definition) withDefaults() Definition {
	if d.SearchQuery == "" {
		d.SearchQuery = d.Name
	}
	if d.SearchSpan <= 0 {
		d.SearchSpan = DefaultSearchSpan
	}
	return d
}

// Validate rejects definitions that cannot be cached or searched.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty definition id", place.ErrInvalidID)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("definition %s: name is required", d.ID)
	}
	return nil
}

// Matches reports whether the normalized query occurs in the definition's
// name or fallback address.
func (d Definition) Matches(query string) bool {
	q := textutil.NormalizeName(query)
	if q == "" {
		return false
	}
	if strings.Contains(textutil.NormalizeName(d.Name), q) {
		return true
	}
	return d.FallbackAddress != "" && strings.Contains(textutil.NormalizeName(d.FallbackAddress), q)
}

// SearchRegion is the square around the anchor where a match is expected.
func (d Definition) SearchRegion() geo.Region {
	span := d.SearchSpan
	if span <= 0 {
		span = DefaultSearchSpan
	}
	return geo.NewRegion(d.Anchor, span, span)
}

// AcceptRegion is where a resolved coordinate may land: the search region,
// or its expansion when broad search is allowed.
func (d Definition) AcceptRegion() geo.Region {
	if d.AllowsBroadSearch {
		return d.SearchRegion().Expand()
	}
	return d.SearchRegion()
}

// Record is the local record the matcher searches with.
func (d Definition) Record() place.Record {
	var query string
	if !strings.EqualFold(strings.TrimSpace(d.SearchQuery), strings.TrimSpace(d.Name)) {
		query = d.SearchQuery
	}
	return place.Record{
		ID:          d.ID,
		Name:        d.Name,
		SearchQuery: query,
		Coordinate:  d.Anchor,
		Address:     d.FallbackAddress,
		Status:      d.Status,
		Rating:      d.Rating,
		RatingCount: d.RatingCount,
		Confidence:  d.Confidence,
		ExternalID:  d.ExternalID,
	}
}
