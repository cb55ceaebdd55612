// Package elastic implements search.Provider over a self-hosted
// Elasticsearch index of places, for running the matcher against an offline
// copy of a provider dataset.
//
// Documents carry id, name, address, phone, and a geo_point location. Phone
// lookups are exact term queries, nearby lookups combine a geo_distance
// filter with a name match sorted by distance, and text lookups are
// multi_match queries over name and address.
package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/olivere/elastic/v7"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/search"
)

const (
	providerName      = "elastic"
	defaultIndex      = "places"
	defaultURL        = "http://localhost:9200"
	defaultMaxResults = 6
)

// Config describes the Elasticsearch connection.
type Config struct {
	URL        string
	Index      string
	MaxResults int
	HTTPClient *http.Client
}

// Document is the indexed form of a place.
type Document struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Address  string           `json:"address,omitempty"`
	Phone    string           `json:"phone,omitempty"`
	Location elastic.GeoPoint `json:"location"`
}

// Client searches and maintains the places index.
type Client struct {
	es         *elastic.Client
	index      string
	maxResults int
}

// New connects to Elasticsearch. Sniffing and health checks are disabled so
// single-node and proxied deployments work without extra settings.
func New(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = defaultURL
	}
	index := strings.TrimSpace(cfg.Index)
	if index == "" {
		index = defaultIndex
	}
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, elastic.SetHttpClient(cfg.HTTPClient))
	}
	es, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("elastic: create client: %w", err)
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{es: es, index: index, maxResults: maxResults}, nil
}

// Name identifies the provider in logs and record provenance.
func (c *Client) Name() string {
	return "Elasticsearch"
}

// FindByPhone matches the exact normalized phone keyword.
func (c *Client) FindByPhone(ctx context.Context, phone string) ([]place.Candidate, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	query := elastic.NewTermQuery("phone", phone)
	return c.run(ctx, "phone", place.MethodPhone, query, nil)
}

// FindNearby filters to radiusMeters around center and ranks by distance.
func (c *Client) FindNearby(ctx context.Context, center geo.Coordinate, radiusMeters float64, keyword string) ([]place.Candidate, error) {
	if !center.Valid() || radiusMeters <= 0 {
		return nil, nil
	}
	query := elastic.NewBoolQuery().Filter(
		elastic.NewGeoDistanceQuery("location").
			Point(center.Lat, center.Lon).
			Distance(fmt.Sprintf("%.0fm", radiusMeters)),
	)
	if kw := strings.TrimSpace(keyword); kw != "" {
		query = query.Must(elastic.NewMatchQuery("name", kw))
	}
	return c.run(ctx, "nearby", place.MethodNearby, query, distanceSort(center))
}

// FindByText runs a relevance query over name and address. With a bias
// point, equally relevant hits are ordered by distance.
func (c *Client) FindByText(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	q := elastic.NewMultiMatchQuery(query, "name^2", "address").Type("best_fields")
	var sorters []elastic.Sorter
	if bias != nil && bias.Valid() {
		sorters = append([]elastic.Sorter{elastic.NewScoreSort()}, distanceSort(*bias)...)
	}
	return c.run(ctx, "text", place.MethodText, q, sorters)
}

func distanceSort(center geo.Coordinate) []elastic.Sorter {
	return []elastic.Sorter{
		elastic.NewGeoDistanceSort("location").
			Point(center.Lat, center.Lon).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true),
	}
}

func (c *Client) run(ctx context.Context, op string, method place.Method, query elastic.Query, sorters []elastic.Sorter) ([]place.Candidate, error) {
	svc := c.es.Search().Index(c.index).Query(query).Size(c.maxResults)
	if len(sorters) > 0 {
		svc = svc.SortBy(sorters...)
	}
	result, err := svc.Do(ctx)
	if err != nil {
		return nil, translateError(op, err)
	}
	if result == nil || result.Hits == nil {
		return nil, nil
	}
	out := make([]place.Candidate, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, search.Malformed(providerName, op, err)
		}
		id := doc.ID
		if id == "" {
			id = hit.Id
		}
		coord := &geo.Coordinate{Lat: doc.Location.Lat, Lon: doc.Location.Lon}
		out = append(out, place.Candidate{
			ExternalID: id,
			Name:       doc.Name,
			Address:    doc.Address,
			Coordinate: coord,
			Method:     method,
		})
	}
	return out, nil
}

func translateError(op string, err error) error {
	var esErr *elastic.Error
	if errors.As(err, &esErr) {
		body := ""
		if esErr.Details != nil {
			body = esErr.Details.Reason
		}
		return &search.StatusError{Provider: providerName, Op: op, Code: esErr.Status, Body: body}
	}
	return fmt.Errorf("elastic %s: %w", op, err)
}
