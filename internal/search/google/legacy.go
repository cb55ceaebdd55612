package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/search"
)

const legacyFields = "place_id,name,formatted_address,geometry"

type legacyLocation struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type legacyResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Vicinity         string `json:"vicinity"`
	Geometry         struct {
		Location legacyLocation `json:"location"`
	} `json:"geometry"`
}

type legacyResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Candidates   []legacyResult `json:"candidates"`
	Results      []legacyResult `json:"results"`
}

type legacyDialect struct{}

func (legacyDialect) phone(ctx context.Context, c *Client, phone string) ([]place.Candidate, error) {
	params := url.Values{}
	params.Set("input", phone)
	params.Set("inputtype", "phonenumber")
	params.Set("fields", legacyFields)
	return legacyFetch(ctx, c, "findplacefromtext/json", params, "phone", place.MethodPhone)
}

func (legacyDialect) nearby(ctx context.Context, c *Client, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error) {
	params := url.Values{}
	params.Set("location", center.String())
	params.Set("radius", strconv.FormatFloat(radiusMeters, 'f', -1, 64))
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	return legacyFetch(ctx, c, "nearbysearch/json", params, "nearby", place.MethodNearby)
}

func (legacyDialect) text(ctx context.Context, c *Client, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
	params := url.Values{}
	params.Set("input", query)
	params.Set("inputtype", "textquery")
	params.Set("fields", legacyFields)
	if bias != nil && bias.Valid() {
		params.Set("locationbias", "point:"+bias.String())
	}
	return legacyFetch(ctx, c, "findplacefromtext/json", params, "text", place.MethodText)
}

func legacyFetch(ctx context.Context, c *Client, path string, params url.Values, op string, method place.Method) ([]place.Candidate, error) {
	endpoint := c.baseURL.JoinPath(path)
	params.Set("key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("google places %s: build request: %w", op, err)
	}
	var payload legacyResponse
	if err := c.do(req, op, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "":
		return nil, search.Malformed(providerName, op, fmt.Errorf("missing status"))
	default:
		return nil, &search.StatusError{
			Provider: providerName,
			Op:       op,
			Code:     legacyStatusCode(payload.Status),
			Status:   payload.Status,
			Body:     payload.ErrorMessage,
		}
	}

	results := payload.Candidates
	if len(results) == 0 {
		results = payload.Results
	}
	out := make([]place.Candidate, 0, len(results))
	for _, r := range results {
		address := r.Vicinity
		if address == "" {
			address = r.FormattedAddress
		}
		if method != place.MethodNearby && r.FormattedAddress != "" {
			address = r.FormattedAddress
		}
		var coord *geo.Coordinate
		if loc := r.Geometry.Location; loc.Lat != nil && loc.Lng != nil {
			coord = &geo.Coordinate{Lat: *loc.Lat, Lon: *loc.Lng}
		}
		if cand, ok := candidate(r.PlaceID, r.Name, address, coord, method); ok {
			out = append(out, cand)
		}
	}
	return c.truncate(out), nil
}

// legacyStatusCode maps body-level statuses onto HTTP equivalents so that
// retry classification stays status based.
func legacyStatusCode(status string) int {
	switch status {
	case "OVER_QUERY_LIMIT":
		return http.StatusTooManyRequests
	case "UNKNOWN_ERROR":
		return http.StatusInternalServerError
	case "REQUEST_DENIED":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
