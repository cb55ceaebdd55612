package google

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

func newLegacyClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{APIKey: "test-key", API: APILegacy, BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresKeyAndKnownAPI(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := New(Config{APIKey: "k", API: "v9"}); err == nil {
		t.Fatal("expected error for unknown api")
	}
	client, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.API() != APILegacy {
		t.Fatalf("expected legacy default, got %q", client.API())
	}
}

func TestLegacyFindByPhone(t *testing.T) {
	client := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/findplacefromtext/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputtype") != "phonenumber" || q.Get("input") != "+17185550142" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("key") != "test-key" {
			t.Errorf("expected api key in query, got %q", q.Get("key"))
		}
		if q.Get("fields") != legacyFields {
			t.Errorf("unexpected fields %q", q.Get("fields"))
		}
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"candidates": [{
				"place_id": "ChIJ-bkjani",
				"name": "BK Jani",
				"formatted_address": "276 Knickerbocker Ave, Brooklyn, NY 11237",
				"geometry": {"location": {"lat": 40.70208, "lng": -73.92432}}
			}]
		}`)
	})

	got, err := client.FindByPhone(context.Background(), "+17185550142")
	if err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.ExternalID != "ChIJ-bkjani" || c.Method != place.MethodPhone || !c.HasCoordinate() {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if c.Address != "276 Knickerbocker Ave, Brooklyn, NY 11237" {
		t.Fatalf("unexpected address %q", c.Address)
	}
}

func TestLegacyFindNearbyUsesVicinityAndCaps(t *testing.T) {
	client := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/nearbysearch/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q.Get("radius") != "120" || q.Get("keyword") != "BK Jani" || q.Get("location") != "40.7020781,-73.9243236" {
			t.Errorf("unexpected query %v", q)
		}
		results := make([]map[string]any, 0, 8)
		for i := 0; i < 8; i++ {
			results = append(results, map[string]any{
				"place_id": "id-" + string(rune('a'+i)),
				"name":     "Spot",
				"vicinity": "Knickerbocker Ave",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": results})
	})

	got, err := client.FindNearby(context.Background(), geo.Coordinate{Lat: 40.7020781, Lon: -73.9243236}, 120, "BK Jani")
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(got) != defaultMaxResults {
		t.Fatalf("expected results capped at %d, got %d", defaultMaxResults, len(got))
	}
	if got[0].Address != "Knickerbocker Ave" || got[0].Method != place.MethodNearby {
		t.Fatalf("unexpected candidate %+v", got[0])
	}
	if got[0].HasCoordinate() {
		t.Fatal("expected missing geometry to leave coordinate nil")
	}
}

func TestLegacyFindByTextLocationBias(t *testing.T) {
	client := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("inputtype") != "textquery" {
			t.Errorf("unexpected inputtype %q", q.Get("inputtype"))
		}
		if q.Get("locationbias") != "point:40.7000000,-73.9000000" {
			t.Errorf("unexpected locationbias %q", q.Get("locationbias"))
		}
		_, _ = io.WriteString(w, `{"status":"ZERO_RESULTS","candidates":[]}`)
	})

	got, err := client.FindByText(context.Background(), "BK Jani Brooklyn", &geo.Coordinate{Lat: 40.7, Lon: -73.9})
	if err != nil {
		t.Fatalf("FindByText: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestLegacyBodyStatusesMapToStatusErrors(t *testing.T) {
	tests := []struct {
		status    string
		transient bool
	}{
		{"OVER_QUERY_LIMIT", true},
		{"UNKNOWN_ERROR", true},
		{"REQUEST_DENIED", false},
		{"INVALID_REQUEST", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"status": tt.status, "error_message": "nope"})
			})
			_, err := client.FindByText(context.Background(), "query", nil)
			var statusErr *search.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.Status != tt.status {
				t.Fatalf("expected status %q, got %q", tt.status, statusErr.Status)
			}
			if search.IsTransient(err) != tt.transient {
				t.Fatalf("transient = %v, want %v", search.IsTransient(err), tt.transient)
			}
		})
	}
}

func TestHTTPErrorsAndMalformedBodies(t *testing.T) {
	client := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("input") {
		case "busy":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "try later")
		case "denied":
			w.WriteHeader(http.StatusForbidden)
		default:
			_, _ = io.WriteString(w, "{not json")
		}
	})

	_, err := client.FindByText(context.Background(), "busy", nil)
	if !search.IsTransient(err) {
		t.Fatalf("expected transient error for 503, got %v", err)
	}
	if !strings.Contains(err.Error(), "try later") {
		t.Fatalf("expected body in error, got %v", err)
	}

	_, err = client.FindByText(context.Background(), "denied", nil)
	if err == nil || search.IsTransient(err) {
		t.Fatalf("expected permanent error for 403, got %v", err)
	}

	_, err = client.FindByText(context.Background(), "garbage", nil)
	if !errors.Is(err, search.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestV1SearchTextHeadersAndDecoding(t *testing.T) {
	var captured v1TextRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/places:searchText" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "v1-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("X-Goog-FieldMask") != v1FieldMask {
			t.Errorf("unexpected field mask %q", r.Header.Get("X-Goog-FieldMask"))
		}
		captured = v1TextRequest{}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = io.WriteString(w, `{"places":[
			{"id":"v1-id","displayName":{"text":"BK Jani"},"formattedAddress":"276 Knickerbocker Ave","location":{"latitude":40.70208,"longitude":-73.92432}},
			{"displayName":{"text":"No Id Grill"},"location":{"latitude":40.7,"longitude":-73.9}},
			{"displayName":{"text":""}}
		]}`)
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "v1-key", API: APIV1, BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := client.FindNearby(context.Background(), geo.Coordinate{Lat: 40.7, Lon: -73.92}, 300, "BK Jani")
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if captured.TextQuery != "BK Jani" || captured.LocationRestriction == nil || captured.LocationRestriction.Rectangle == nil {
		t.Fatalf("unexpected request body %+v", captured)
	}
	if captured.PageSize != defaultMaxResults {
		t.Fatalf("expected page size %d, got %d", defaultMaxResults, captured.PageSize)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d (%+v)", len(got), got)
	}
	if got[0].ExternalID != "v1-id" || got[0].Method != place.MethodNearby {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].ExternalID != "no-id-grill-40.70000--73.90000" {
		t.Fatalf("expected persistent id fallback, got %q", got[1].ExternalID)
	}

	if _, err := client.FindByText(context.Background(), "BK Jani", &geo.Coordinate{Lat: 40.7, Lon: -73.92}); err != nil {
		t.Fatalf("FindByText: %v", err)
	}
	if captured.LocationBias == nil || captured.LocationBias.Circle == nil || captured.LocationRestriction != nil {
		t.Fatalf("expected circle bias only, got %+v", captured)
	}
}
