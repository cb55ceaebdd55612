package matcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/search"
	"placematch/internal/testsupport"
)

func newTestMatcher(t *testing.T, provider search.Provider) *Matcher {
	t.Helper()
	opts := DefaultOptions()
	opts.Retry.Delay = 0
	m, err := New(provider, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func methods(calls []testsupport.ProviderCall) []place.Method {
	out := make([]place.Method, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

func TestMatchStopsAtPhoneTier(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Phone: func(ctx context.Context, phone string) ([]place.Candidate, error) {
			return []place.Candidate{testsupport.Candidate("g1", "BK Jani", "276 Knickerbocker Ave, Brooklyn, NY 11237", anchor.Lat, anchor.Lon, place.MethodPhone)}, nil
		},
	}
	m := newTestMatcher(t, provider)
	rec := place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor, Phone: "(718) 555-0142", Address: "276 Knickerbocker Ave, Brooklyn, NY 11237"}

	got, err := m.Match(context.Background(), rec)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Status != place.StatusMatched || got.ExternalID() != "g1" {
		t.Fatalf("unexpected decision %+v", got)
	}
	calls := provider.Calls()
	if len(calls) != 1 || calls[0].Phone != "7185550142" {
		t.Fatalf("expected a single normalized phone call, got %+v", calls)
	}
}

func TestMatchFallsThroughTiers(t *testing.T) {
	provider := &testsupport.FakeProvider{}
	m := newTestMatcher(t, provider)
	rec := place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor, Phone: "718 555 0142", Address: "276 Knickerbocker Ave"}

	got, err := m.Match(context.Background(), rec)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Status != place.StatusUnmatched || got.Reason != "no-candidates" {
		t.Fatalf("unexpected decision %+v", got)
	}
	calls := provider.Calls()
	want := []place.Method{place.MethodPhone, place.MethodNearby, place.MethodNearby, place.MethodText}
	if !reflect.DeepEqual(methods(calls), want) {
		t.Fatalf("tiers = %v, want %v", methods(calls), want)
	}
	if calls[1].Radius != DefaultRadiusMeters || calls[2].Radius != DefaultFallbackRadiusMeters {
		t.Fatalf("unexpected radii %v / %v", calls[1].Radius, calls[2].Radius)
	}
	if calls[3].Query != "BK Jani 276 Knickerbocker Ave" || calls[3].Bias == nil {
		t.Fatalf("unexpected text call %+v", calls[3])
	}
}

func TestMatchSkipsFallbackRadiusWhenNotLarger(t *testing.T) {
	provider := &testsupport.FakeProvider{}
	opts := DefaultOptions()
	opts.FallbackRadiusMeters = 100
	m, err := New(provider, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Match(context.Background(), place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor}); err != nil {
		t.Fatalf("Match: %v", err)
	}
	want := []place.Method{place.MethodNearby, place.MethodText}
	if got := methods(provider.Calls()); !reflect.DeepEqual(got, want) {
		t.Fatalf("tiers = %v, want %v", got, want)
	}
}

func TestMatchWithoutCoordinatesGoesStraightToText(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Text: func(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
			if bias != nil {
				t.Errorf("expected no location bias without coordinates")
			}
			return []place.Candidate{{ExternalID: "g1", Name: "BK Jani", Method: place.MethodText}}, nil
		},
	}
	m := newTestMatcher(t, provider)
	got, err := m.Match(context.Background(), place.Record{ID: "p1", Name: "BK Jani", Locality: "Brooklyn"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Status != place.StatusUnmatched || got.Reason != "low-score:4" {
		t.Fatalf("unexpected decision %+v", got)
	}
	if got.Candidate == nil || got.Candidate.ExternalID != "g1" {
		t.Fatal("expected low-score candidate kept for diagnostics")
	}
	calls := provider.Calls()
	if len(calls) != 1 || calls[0].Query != "BK Jani Brooklyn" {
		t.Fatalf("expected single text call, got %+v", calls)
	}
}

func TestMatchSearchesWithQueryButScoresName(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Text: func(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
			return []place.Candidate{{ExternalID: "g1", Name: "BK Jani", Method: place.MethodText}}, nil
		},
	}
	m := newTestMatcher(t, provider)
	r := place.Record{ID: "p1", Name: "BK Jani", Locality: "Brooklyn", SearchQuery: "halal burgers knickerbocker"}
	got, err := m.Match(context.Background(), r)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Score == nil || *got.Score != 4 {
		t.Fatalf("expected exact name score against Name, got %+v", got)
	}
	calls := provider.Calls()
	if len(calls) != 1 || calls[0].Query != "halal burgers knickerbocker" {
		t.Fatalf("expected text call with the search query, got %+v", calls)
	}
	if got := TextQuery(place.Record{Name: "BK Jani", Address: "276 Knickerbocker Ave"}); got != "BK Jani 276 Knickerbocker Ave" {
		t.Fatalf("TextQuery without search query = %q", got)
	}
}

func TestMatchLogsRejectedPhone(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Retry.Delay = 0
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	provider := &testsupport.FakeProvider{}
	m, err := New(provider, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Match(context.Background(), place.Record{ID: "p9", Name: "BK Jani", Phone: "555-12"}); err != nil {
		t.Fatalf("Match: %v", err)
	}
	for _, c := range provider.Calls() {
		if c.Method == place.MethodPhone {
			t.Fatal("phone tier ran for a rejected number")
		}
	}
	out := buf.String()
	if !strings.Contains(out, "phone rejected") || !strings.Contains(out, "place_id=p9") || !strings.Contains(out, "phone=555-12") {
		t.Fatalf("expected rejected phone diagnostic, got %q", out)
	}
}

func TestMatchEscalatesToTextOnLowScore(t *testing.T) {
	far := testsupport.Offset(anchor, 280)
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			return []place.Candidate{testsupport.Candidate("other", "Jani Deli", "", far.Lat, far.Lon, place.MethodNearby)}, nil
		},
		Text: func(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
			near := testsupport.Offset(anchor, 30)
			return []place.Candidate{testsupport.Candidate("g1", "BK Jani", "", near.Lat, near.Lon, place.MethodText)}, nil
		},
	}
	m := newTestMatcher(t, provider)
	got, err := m.Match(context.Background(), place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Status != place.StatusMatched || got.ExternalID() != "g1" {
		t.Fatalf("expected text tier to rescue the match, got %+v", got)
	}
	if got.Method != place.MethodText {
		t.Fatalf("expected text method, got %s", got.Method)
	}
	want := []place.Method{place.MethodNearby, place.MethodText}
	if calls := methods(provider.Calls()); !reflect.DeepEqual(calls, want) {
		t.Fatalf("tiers = %v, want %v", calls, want)
	}
}

func TestMatchScenarioAmbiguousReview(t *testing.T) {
	c60 := testsupport.Offset(anchor, 60)
	c150 := testsupport.Offset(anchor, 150)
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			return []place.Candidate{
				testsupport.Candidate("g1", "Kebab House", "", c60.Lat, c60.Lon, place.MethodNearby),
				testsupport.Candidate("g2", "Kebab House", "", c150.Lat, c150.Lon, place.MethodNearby),
			}, nil
		},
	}
	m := newTestMatcher(t, provider)
	got, err := m.Match(context.Background(), place.Record{ID: "p1", Name: "Kebab House", Coordinate: anchor})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Status != place.StatusReview || *got.Score != 7 {
		t.Fatalf("expected review at score 7, got %+v", got)
	}
}

func TestMatchCapsCandidatesAndDropsClosed(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			out := []place.Candidate{testsupport.Candidate("closed", "BK Jani (Permanently Closed)", "", anchor.Lat, anchor.Lon, place.MethodNearby)}
			for i := 0; i < 10; i++ {
				out = append(out, testsupport.Candidate(string(rune('a'+i)), "Other", "", anchor.Lat, anchor.Lon, place.MethodNearby))
			}
			return out, nil
		},
	}
	opts := DefaultOptions()
	opts.ExcludeClosed = true
	opts.MaxCandidates = 3
	m, err := New(provider, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cands, usedText, err := m.Gather(context.Background(), place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if usedText || len(cands) != 3 {
		t.Fatalf("expected 3 nearby candidates, got %d (text=%v)", len(cands), usedText)
	}
	for _, c := range cands {
		if c.LikelyClosed() {
			t.Fatalf("closed candidate leaked: %+v", c)
		}
	}
}

func TestMatchPropagatesProviderErrors(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			return nil, &search.StatusError{Provider: "fake", Op: "nearby", Code: http.StatusTooManyRequests}
		},
	}
	m := newTestMatcher(t, provider)
	_, err := m.Match(context.Background(), place.Record{ID: "p1", Name: "BK Jani", Coordinate: anchor})
	if !search.IsTransient(err) {
		t.Fatalf("expected transient error after retries, got %v", err)
	}
	if got := provider.CallCount(); got != search.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", search.DefaultMaxAttempts, got)
	}

	denied := &testsupport.FakeProvider{
		Text: func(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
			return nil, &search.StatusError{Provider: "fake", Op: "text", Code: http.StatusForbidden}
		},
	}
	m = newTestMatcher(t, denied)
	_, err = m.Match(context.Background(), place.Record{ID: "p1", Name: "BK Jani"})
	var statusErr *search.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusForbidden {
		t.Fatalf("expected permanent status error, got %v", err)
	}
	if denied.CallCount() != 1 {
		t.Fatalf("expected no retries for 403, got %d calls", denied.CallCount())
	}
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Fatal("expected error without provider")
	}
}
