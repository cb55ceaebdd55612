package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"placematch/internal/geo"
	"placematch/internal/place"
)

const (
	v1FieldMask        = "places.id,places.displayName,places.formattedAddress,places.location"
	v1TextBiasRadius   = 5000.0
	v1SearchTextMethod = "places:searchText"
)

type v1LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type v1Circle struct {
	Center v1LatLng `json:"center"`
	Radius float64  `json:"radius"`
}

type v1Rectangle struct {
	Low  v1LatLng `json:"low"`
	High v1LatLng `json:"high"`
}

type v1LocationBias struct {
	Circle *v1Circle `json:"circle,omitempty"`
}

type v1LocationRestriction struct {
	Rectangle *v1Rectangle `json:"rectangle,omitempty"`
}

type v1TextRequest struct {
	TextQuery           string                 `json:"textQuery"`
	PageSize            int                    `json:"pageSize,omitempty"`
	LocationBias        *v1LocationBias        `json:"locationBias,omitempty"`
	LocationRestriction *v1LocationRestriction `json:"locationRestriction,omitempty"`
}

type v1Place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string    `json:"formattedAddress"`
	Location         *v1LatLng `json:"location"`
}

type v1Response struct {
	Places []v1Place `json:"places"`
}

type v1Dialect struct{}

func (v1Dialect) phone(ctx context.Context, c *Client, phone string) ([]place.Candidate, error) {
	return v1Search(ctx, c, v1TextRequest{TextQuery: phone}, "phone", place.MethodPhone)
}

// nearby uses searchText restricted to the bounding box of the radius
// because searchNearby has no keyword filter.
func (v1Dialect) nearby(ctx context.Context, c *Client, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error) {
	box := geo.RegionAround(center, radiusMeters)
	low, high := box.Low(), box.High()
	req := v1TextRequest{
		TextQuery: keyword,
		LocationRestriction: &v1LocationRestriction{Rectangle: &v1Rectangle{
			Low:  v1LatLng{Latitude: low.Lat, Longitude: low.Lon},
			High: v1LatLng{Latitude: high.Lat, Longitude: high.Lon},
		}},
	}
	return v1Search(ctx, c, req, "nearby", place.MethodNearby)
}

func (v1Dialect) text(ctx context.Context, c *Client, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
	req := v1TextRequest{TextQuery: query}
	if bias != nil && bias.Valid() {
		req.LocationBias = &v1LocationBias{Circle: &v1Circle{
			Center: v1LatLng{Latitude: bias.Lat, Longitude: bias.Lon},
			Radius: v1TextBiasRadius,
		}}
	}
	return v1Search(ctx, c, req, "text", place.MethodText)
}

func v1Search(ctx context.Context, c *Client, body v1TextRequest, op string, method place.Method) ([]place.Candidate, error) {
	body.PageSize = c.maxResults
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("google places %s: encode request: %w", op, err)
	}
	endpoint := c.baseURL.JoinPath(v1SearchTextMethod)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("google places %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", v1FieldMask)

	var resp v1Response
	if err := c.do(req, op, &resp); err != nil {
		return nil, err
	}
	out := make([]place.Candidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		var coord *geo.Coordinate
		if p.Location != nil {
			coord = &geo.Coordinate{Lat: p.Location.Latitude, Lon: p.Location.Longitude}
		}
		if cand, ok := candidate(p.ID, p.DisplayName.Text, p.FormattedAddress, coord, method); ok {
			out = append(out, cand)
		}
	}
	return c.truncate(out), nil
}
