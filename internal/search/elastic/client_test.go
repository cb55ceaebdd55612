package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/search"
)

type capturedSearch struct {
	path string
	body map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) (*Client, *capturedSearch) {
	t.Helper()
	captured := &capturedSearch{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.body = nil
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &captured.body)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r, captured.body)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{URL: server.URL, Index: "places-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, captured
}

const twoHits = `{
  "took": 1,
  "hits": {
    "total": {"value": 2, "relation": "eq"},
    "hits": [
      {"_index": "places-test", "_id": "es-1", "_source": {"id": "ChIJ-bkjani", "name": "BK Jani", "address": "276 Knickerbocker Ave", "location": {"lat": 40.70208, "lon": -73.92432}}},
      {"_index": "places-test", "_id": "es-2", "_source": {"name": "Jani Grill", "location": {"lat": 40.703, "lon": -73.925}}}
    ]
  }
}`

func TestFindNearbyBuildsGeoQuery(t *testing.T) {
	client, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		_, _ = io.WriteString(w, twoHits)
	})

	got, err := client.FindNearby(context.Background(), geo.Coordinate{Lat: 40.702, Lon: -73.924}, 120, "BK Jani")
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if captured.path != "/places-test/_search" {
		t.Fatalf("unexpected path %q", captured.path)
	}
	raw, _ := json.Marshal(captured.body)
	for _, want := range []string{`"geo_distance"`, `"120m"`, `"_geo_distance"`, `"BK Jani"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("expected %s in request body %s", want, raw)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ExternalID != "ChIJ-bkjani" || got[0].Method != place.MethodNearby {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].ExternalID != "es-2" {
		t.Fatalf("expected hit id fallback, got %q", got[1].ExternalID)
	}
	if !got[1].HasCoordinate() {
		t.Fatal("expected coordinate from geo point")
	}
}

func TestFindByPhoneUsesTermQuery(t *testing.T) {
	client, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`)
	})

	got, err := client.FindByPhone(context.Background(), "+17185550142")
	if err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	raw, _ := json.Marshal(captured.body)
	if !strings.Contains(string(raw), `"term"`) || !strings.Contains(string(raw), `+17185550142`) {
		t.Fatalf("expected term query on phone, got %s", raw)
	}
}

func TestFindByTextSortsByScoreThenDistance(t *testing.T) {
	client, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		_, _ = io.WriteString(w, twoHits)
	})

	got, err := client.FindByText(context.Background(), "BK Jani Brooklyn", &geo.Coordinate{Lat: 40.7, Lon: -73.9})
	if err != nil {
		t.Fatalf("FindByText: %v", err)
	}
	if len(got) != 2 || got[0].Method != place.MethodText {
		t.Fatalf("unexpected candidates %+v", got)
	}
	raw, _ := json.Marshal(captured.body)
	if !strings.Contains(string(raw), `"multi_match"`) || !strings.Contains(string(raw), `"_score"`) {
		t.Fatalf("expected multi_match with score sort, got %s", raw)
	}
}

func TestServerErrorsBecomeStatusErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"type":"unavailable_shards_exception","reason":"all shards failed"},"status":503}`)
	})

	_, err := client.FindByText(context.Background(), "anything", nil)
	var statusErr *search.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || !search.IsTransient(err) {
		t.Fatalf("expected transient 503, got %+v", statusErr)
	}
}

func TestDocumentFor(t *testing.T) {
	doc := DocumentFor(place.Record{
		ID:         "p1",
		Name:       "BK Jani",
		Phone:      "(718) 555-0142",
		Coordinate: geo.Coordinate{Lat: 40.7, Lon: -73.9},
	})
	if doc.ID != "p1" || doc.Phone != "7185550142" || doc.Location.Lat != 40.7 {
		t.Fatalf("unexpected document %+v", doc)
	}
	doc = DocumentFor(place.Record{ID: "p1", ExternalID: "ChIJ"})
	if doc.ID != "ChIJ" {
		t.Fatalf("expected external id to win, got %q", doc.ID)
	}
}
