package place

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"placematch/internal/geo"
	"placematch/internal/textutil"
)

// ErrInvalidID indicates a record identifier that cannot be used as a key.
var ErrInvalidID = errors.New("invalid place id")

// Record is a locally known business. ID is assigned once and never changes;
// the matcher only derives ExternalID and Confidence.
type Record struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	Address     string         `json:"address,omitempty"`
	State       string         `json:"state,omitempty"`
	Locality    string         `json:"display_location,omitempty"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status,omitempty"`
	Rating      *float64       `json:"rating,omitempty"`
	RatingCount *int           `json:"rating_count,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
	Source      string         `json:"source,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	// SearchQuery replaces Name as the search keyword when set. Candidates
	// are still scored against Name.
	SearchQuery string `json:"search_query,omitempty"`
}

// Validate rejects records that cannot be keyed or searched.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("place %s: name is required", r.ID)
	}
	return nil
}

// HasCoordinate reports whether the record carries a usable coordinate.
func (r Record) HasCoordinate() bool {
	return r.Coordinate.Valid() && !(r.Coordinate.Lat == 0 && r.Coordinate.Lon == 0)
}

// Keyword is the text sent to the index: SearchQuery when set, else Name.
func (r Record) Keyword() string {
	if q := strings.TrimSpace(r.SearchQuery); q != "" {
		return q
	}
	return strings.TrimSpace(r.Name)
}

// DisplayLocation is the location text used for free-text queries: the
// street address when present, otherwise the locality line.
func (r Record) DisplayLocation() string {
	if addr := strings.TrimSpace(r.Address); addr != "" {
		return addr
	}
	return strings.TrimSpace(r.Locality)
}

// PersistentID derives a stable identifier from a name and coordinate for
// provider results that carry none.
func PersistentID(name string, c geo.Coordinate) string {
	return fmt.Sprintf("%s-%.5f-%.5f", textutil.Slug(name), c.Lat, c.Lon)
}

// MapsURL links to the provider's public map page for externalID.
func MapsURL(externalID string) string {
	if strings.TrimSpace(externalID) == "" {
		return ""
	}
	return "https://maps.google.com/?q=place_id:" + url.QueryEscape(externalID)
}
