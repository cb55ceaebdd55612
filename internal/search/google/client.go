// Package google implements search.Provider against the Google Places API.
//
// Two request/response dialects are supported and chosen once in New: the
// legacy Places web service (findplacefromtext and nearbysearch with a key
// query parameter) and Places API v1 (searchText with X-Goog-Api-Key and a
// field mask). Callers never branch on the dialect after construction.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/search"
)

// API selects the Places dialect.
type API string

const (
	APILegacy API = "legacy"
	APIV1     API = "v1"
)

const (
	providerName       = "google"
	defaultLegacyBase  = "https://maps.googleapis.com/maps/api/place"
	defaultV1Base      = "https://places.googleapis.com/v1"
	defaultHTTPTimeout = 20 * time.Second
	defaultMaxResults  = 6
	errorBodyLimit     = 4096
)

// Config describes the Places client configuration.
type Config struct {
	APIKey     string
	API        API
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

// dialect builds requests and decodes responses for one API generation.
type dialect interface {
	phone(ctx context.Context, c *Client, phone string) ([]place.Candidate, error)
	nearby(ctx context.Context, c *Client, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error)
	text(ctx context.Context, c *Client, query string, bias *geo.Coordinate) ([]place.Candidate, error)
}

// Client wraps the Google Places API.
type Client struct {
	apiKey     string
	api        API
	baseURL    *url.URL
	maxResults int
	http       *http.Client
	dialect    dialect
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("google places: api key is required")
	}
	api := API(strings.ToLower(strings.TrimSpace(string(cfg.API))))
	if api == "" {
		api = APILegacy
	}
	var (
		d    dialect
		base = strings.TrimSpace(cfg.BaseURL)
	)
	switch api {
	case APILegacy:
		d = legacyDialect{}
		if base == "" {
			base = defaultLegacyBase
		}
	case APIV1:
		d = v1Dialect{}
		if base == "" {
			base = defaultV1Base
		}
	default:
		return nil, fmt.Errorf("google places: unsupported api %q", cfg.API)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("google places: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{
		apiKey:     apiKey,
		api:        api,
		baseURL:    baseURL,
		maxResults: maxResults,
		http:       client,
		dialect:    d,
	}, nil
}

// Name identifies the provider in logs and record provenance.
func (c *Client) Name() string {
	return "Google Places"
}

// API reports the dialect chosen at construction.
func (c *Client) API() API {
	return c.api
}

// FindByPhone looks up places registered under an exact phone number.
func (c *Client) FindByPhone(ctx context.Context, phone string) ([]place.Candidate, error) {
	if c == nil {
		return nil, errors.New("google places: client is nil")
	}
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	return c.dialect.phone(ctx, c, phone)
}

// FindNearby searches for keyword within radiusMeters of center.
func (c *Client) FindNearby(ctx context.Context, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error) {
	if c == nil {
		return nil, errors.New("google places: client is nil")
	}
	if !center.Valid() || radiusMeters <= 0 {
		return nil, nil
	}
	return c.dialect.nearby(ctx, c, center, radiusMeters, keyword)
}

// FindByText runs a free-text query, optionally biased toward a point.
func (c *Client) FindByText(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
	if c == nil {
		return nil, errors.New("google places: client is nil")
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return c.dialect.text(ctx, c, query, bias)
}

// do sends req and decodes a successful JSON body into out. Non-2xx
// responses become *search.StatusError.
func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("google places %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &search.StatusError{
			Provider: providerName,
			Op:       op,
			Code:     resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return search.Malformed(providerName, op, err)
	}
	return nil
}

// candidate builds a place.Candidate, deriving a persistent identifier when
// the API omitted one. Results with neither id nor name are dropped.
func candidate(id, name, address string, coord *geo.Coordinate, method place.Method) (place.Candidate, bool) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		if name == "" || coord == nil {
			return place.Candidate{}, false
		}
		id = place.PersistentID(name, *coord)
	}
	return place.Candidate{
		ExternalID: id,
		Name:       name,
		Address:    strings.TrimSpace(address),
		Coordinate: coord,
		Method:     method,
	}, true
}

func (c *Client) truncate(candidates []place.Candidate) []place.Candidate {
	if len(candidates) > c.maxResults {
		return candidates[:c.maxResults]
	}
	return candidates
}
