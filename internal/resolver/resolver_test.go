package resolver_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"placematch/internal/geo"
	"placematch/internal/matcher"
	"placematch/internal/place"
	"placematch/internal/resolver"
	"placematch/internal/snapshot"
	"placematch/internal/testsupport"
)

var anchor = geo.Coordinate{Lat: 40.7003, Lon: -73.9187}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type persisted struct {
	mu    sync.Mutex
	pairs map[string]string
}

func (p *persisted) PersistExternalID(_ context.Context, id, externalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pairs == nil {
		p.pairs = map[string]string{}
	}
	p.pairs[id] = externalID
	return nil
}

func newMatcher(t *testing.T, provider *testsupport.FakeProvider, thresholds matcher.Thresholds) *matcher.Matcher {
	t.Helper()
	opts := matcher.DefaultOptions()
	opts.Retry.Delay = 0
	opts.ExcludeClosed = true
	if thresholds != (matcher.Thresholds{}) {
		opts.Thresholds = thresholds
	}
	m, err := matcher.New(provider, opts)
	if err != nil {
		t.Fatalf("matcher.New: %v", err)
	}
	return m
}

func newService(t *testing.T, provider *testsupport.FakeProvider, opts resolver.Options) *resolver.Service {
	t.Helper()
	if opts.Matcher == nil {
		opts.Matcher = newMatcher(t, provider, matcher.Thresholds{})
	}
	svc, err := resolver.New(opts)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	t.Cleanup(svc.Wait)
	return svc
}

// nearbyByName answers nearby searches with a close candidate named after
// the keyword, using ids[keyword] as its external id.
func nearbyByName(ids map[string]string) func(context.Context, geo.Coordinate, float64, string) ([]place.Candidate, error) {
	return func(_ context.Context, center geo.Coordinate, _ float64, keyword string) ([]place.Candidate, error) {
		id, ok := ids[keyword]
		if !ok {
			return nil, nil
		}
		at := testsupport.Offset(center, 30)
		return []place.Candidate{testsupport.Candidate(id, keyword, "", at.Lat, at.Lon, place.MethodNearby)}, nil
	}
}

func definition(id, name string, at geo.Coordinate) resolver.Definition {
	return resolver.Definition{
		ID:                id,
		Name:              name,
		Anchor:            at,
		Status:            "yes",
		AllowsBroadSearch: true,
	}
}

func TestParseDefinitions(t *testing.T) {
	data := []byte(`
[[place]]
id = "bk-jani"
name = "BK Jani"
lat = 40.7003
lon = -73.9187
address = "276 Knickerbocker Ave, Brooklyn, NY 11237"
rating = 4.5

[[place]]
name = "Kebab House"
lat = 40.71
lon = -73.95
status = "Partial"
allows_broad_search = false
`)
	defs, err := resolver.ParseDefinitions(data)
	if err != nil {
		t.Fatalf("ParseDefinitions: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions", len(defs))
	}
	first := defs[0]
	if first.ID != "bk-jani" || first.Status != "yes" || !first.AllowsBroadSearch {
		t.Fatalf("unexpected defaults %+v", first)
	}
	if first.SearchQuery != "BK Jani" || first.SearchSpan != resolver.DefaultSearchSpan {
		t.Fatalf("unexpected search defaults %+v", first)
	}
	if first.Rating == nil || *first.Rating != 4.5 {
		t.Fatalf("rating not decoded: %+v", first.Rating)
	}

	second := defs[1]
	if second.ID == "" || second.Status != "partial" || second.AllowsBroadSearch {
		t.Fatalf("unexpected second definition %+v", second)
	}
	again, err := resolver.ParseDefinitions(data)
	if err != nil {
		t.Fatalf("ParseDefinitions again: %v", err)
	}
	if again[1].ID != second.ID {
		t.Fatalf("derived id not stable: %s vs %s", again[1].ID, second.ID)
	}
}

func TestParseDefinitionsReportsEveryProblem(t *testing.T) {
	data := []byte(`
[[place]]
id = "a"
name = "One"
lat = 1
lon = 1

[[place]]
id = "a"
name = "Two"
lat = 2
lon = 2

[[place]]
name = "No Coordinate"

[[place]]
name = ""
lat = 1
lon = 1
`)
	defs, err := resolver.ParseDefinitions(data)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, place.ErrInvalidID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "One" {
		t.Fatalf("expected only the valid entry, got %+v", defs)
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	provider := &testsupport.FakeProvider{}
	_, err := resolver.New(resolver.Options{
		Matcher:     newMatcher(t, provider, matcher.Thresholds{}),
		Definitions: []resolver.Definition{definition("a", "One", anchor), definition("a", "Two", anchor)},
	})
	if !errors.Is(err, place.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestResolveBuildsRecordAndCaches(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	store := &persisted{}
	svc := newService(t, provider, resolver.Options{Store: store})

	def := definition("a", "BK Jani", anchor)
	def.FallbackAddress = "276 Knickerbocker Ave"
	rating := 4.5
	def.Rating = &rating

	rec, err := svc.Resolve(context.Background(), def)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ID != "a" || rec.ExternalID != "g1" || rec.Source != "fake" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Address != "276 Knickerbocker Ave" {
		t.Fatalf("expected fallback address, got %q", rec.Address)
	}
	if rec.Rating == nil || *rec.Rating != 4.5 || rec.Confidence == nil {
		t.Fatalf("expected rating and derived confidence, got %+v", rec)
	}

	calls := provider.CallCount()
	again, err := svc.Resolve(context.Background(), def)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if again == nil || again.ExternalID != "g1" {
		t.Fatalf("unexpected cached record %+v", again)
	}
	if provider.CallCount() != calls {
		t.Fatalf("cached resolve called provider: %d -> %d", calls, provider.CallCount())
	}
	if st := svc.Stats(); st.Hits != 1 || st.Executions != 1 || st.Positive != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}

	svc.Wait()
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.pairs["a"] != "g1" {
		t.Fatalf("external id not persisted: %v", store.pairs)
	}
}

func TestResolveSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	hit := nearbyByName(map[string]string{"BK Jani": "g1"})
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			once.Do(func() { close(started) })
			<-release
			return hit(ctx, center, radius, keyword)
		},
	}
	svc := newService(t, provider, resolver.Options{})
	def := definition("a", "BK Jani", anchor)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*place.Record, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := svc.Resolve(context.Background(), def)
			if err != nil {
				t.Errorf("Resolve: %v", err)
			}
			results[i] = rec
		}()
	}
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, rec := range results {
		if rec == nil || rec.ExternalID != "g1" {
			t.Fatalf("caller %d got %+v", i, rec)
		}
	}
	if st := svc.Stats(); st.Executions != 1 {
		t.Fatalf("pipeline ran %d times", st.Executions)
	}
	if provider.CallCount() != 1 {
		t.Fatalf("provider called %d times", provider.CallCount())
	}
}

func TestResolveCancelledWaiterLeavesRunCaching(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	hit := nearbyByName(map[string]string{"BK Jani": "g1"})
	provider := &testsupport.FakeProvider{
		Nearby: func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
			close(started)
			<-release
			return hit(ctx, center, radius, keyword)
		},
	}
	svc := newService(t, provider, resolver.Options{})
	def := definition("a", "BK Jani", anchor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(ctx, def)
		done <- err
	}()
	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for svc.Stats().Positive == 0 {
		if time.Now().After(deadline) {
			t.Fatal("detached run never cached its result")
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, err := svc.Resolve(context.Background(), def)
	if err != nil || rec == nil || rec.ExternalID != "g1" {
		t.Fatalf("expected cached record, got %+v, %v", rec, err)
	}
	if provider.CallCount() != 1 {
		t.Fatalf("provider called %d times", provider.CallCount())
	}
}

func TestResolveNegativeTTL(t *testing.T) {
	provider := &testsupport.FakeProvider{}
	clk := newClock()
	svc := newService(t, provider, resolver.Options{Clock: clk.Now, NegativeTTL: 10 * time.Minute})
	def := definition("a", "Nowhere Cafe", anchor)

	rec, err := svc.Resolve(context.Background(), def)
	if err != nil || rec != nil {
		t.Fatalf("expected negative result, got %+v, %v", rec, err)
	}
	first := provider.CallCount()
	if first == 0 {
		t.Fatal("expected provider calls")
	}

	clk.Advance(5 * time.Minute)
	if rec, _ := svc.Resolve(context.Background(), def); rec != nil || provider.CallCount() != first {
		t.Fatalf("negative entry not honoured: %+v, calls %d", rec, provider.CallCount())
	}

	clk.Advance(6 * time.Minute)
	if _, err := svc.Resolve(context.Background(), def); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if provider.CallCount() != 2*first {
		t.Fatalf("expected a fresh pipeline after expiry, calls %d", provider.CallCount())
	}
}

func TestResolvePositiveTTLExpires(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	clk := newClock()
	svc := newService(t, provider, resolver.Options{Clock: clk.Now, PositiveTTL: time.Hour})
	def := definition("a", "BK Jani", anchor)

	if _, err := svc.Resolve(context.Background(), def); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	clk.Advance(2 * time.Hour)
	if _, err := svc.Resolve(context.Background(), def); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if st := svc.Stats(); st.Executions != 2 {
		t.Fatalf("expected two pipeline runs, got %d", st.Executions)
	}
}

func TestResolveProviderErrorIsCachedNegative(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Nearby: func(context.Context, geo.Coordinate, float64, string) ([]place.Candidate, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newService(t, provider, resolver.Options{})
	def := definition("a", "BK Jani", anchor)

	if _, err := svc.Resolve(context.Background(), def); err == nil {
		t.Fatal("expected provider error")
	}
	calls := provider.CallCount()
	rec, err := svc.Resolve(context.Background(), def)
	if err != nil || rec != nil {
		t.Fatalf("expected cached negative, got %+v, %v", rec, err)
	}
	if provider.CallCount() != calls {
		t.Fatal("provider called again inside the negative TTL")
	}
}

func TestResolveSearchQueryKeepsNameForScoring(t *testing.T) {
	const query = "halal burgers knickerbocker"
	provider := &testsupport.FakeProvider{
		Nearby: func(_ context.Context, center geo.Coordinate, _ float64, keyword string) ([]place.Candidate, error) {
			if keyword != query {
				return nil, nil
			}
			at := testsupport.Offset(center, 30)
			return []place.Candidate{testsupport.Candidate("g1", "BK Jani", "", at.Lat, at.Lon, place.MethodNearby)}, nil
		},
	}
	svc := newService(t, provider, resolver.Options{})
	def := definition("a", "BK Jani", anchor)
	def.SearchQuery = query

	rec, err := svc.Resolve(context.Background(), def)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec == nil || rec.ExternalID != "g1" || rec.Name != "BK Jani" {
		t.Fatalf("expected match scored against the name, got %+v", rec)
	}
	if rec.SearchQuery != "" {
		t.Fatalf("resolved record should not carry the search query, got %q", rec.SearchQuery)
	}
}

type failingPersister struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPersister) PersistExternalID(context.Context, string, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return errors.New("database is read-only")
}

func TestResolvePersistFailureIsNotObserved(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	store := &failingPersister{}
	svc := newService(t, provider, resolver.Options{Store: store})
	def := definition("a", "BK Jani", anchor)

	rec, err := svc.Resolve(context.Background(), def)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec == nil || rec.ExternalID != "g1" {
		t.Fatalf("expected resolved record, got %+v", rec)
	}
	svc.Wait()

	store.mu.Lock()
	calls := store.calls
	store.mu.Unlock()
	if calls != 1 {
		t.Fatalf("persist calls = %d, want 1", calls)
	}

	again, err := svc.Resolve(context.Background(), def)
	if err != nil || again == nil || again.ExternalID != "g1" {
		t.Fatalf("expected cached positive, got %+v, %v", again, err)
	}
	if st := svc.Stats(); st.Positive != 1 || st.Negative != 0 || st.Executions != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestResolveSharesByExternalID(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	svc := newService(t, provider, resolver.Options{})

	if _, err := svc.Resolve(context.Background(), definition("a", "BK Jani", anchor)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	other := definition("b", "Bushwick Jani", anchor)
	other.ExternalID = "g1"
	rec, err := svc.Resolve(context.Background(), other)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec == nil || rec.ID != "b" || rec.ExternalID != "g1" {
		t.Fatalf("expected shared record keyed to b, got %+v", rec)
	}
	if provider.CallCount() != 1 {
		t.Fatalf("provider called %d times", provider.CallCount())
	}
}

func TestResolveRejectsMatchOutsideRegion(t *testing.T) {
	far := geo.Coordinate{Lat: anchor.Lat + 0.12, Lon: anchor.Lon}
	provider := &testsupport.FakeProvider{
		Nearby: func(context.Context, geo.Coordinate, float64, string) ([]place.Candidate, error) {
			return []place.Candidate{testsupport.Candidate("g1", "BK Jani", "", far.Lat, far.Lon, place.MethodNearby)}, nil
		},
	}
	loose := matcher.Thresholds{MinScore: 4, AmbiguityGap: 2, FarDistanceMeters: 1e7}
	svc := newService(t, provider, resolver.Options{Matcher: newMatcher(t, provider, loose)})

	narrow := definition("a", "BK Jani", anchor)
	narrow.AllowsBroadSearch = false
	rec, err := svc.Resolve(context.Background(), narrow)
	if err != nil || rec != nil {
		t.Fatalf("expected rejection, got %+v, %v", rec, err)
	}

	broad := definition("b", "BK Jani", anchor)
	rec, err = svc.Resolve(context.Background(), broad)
	if err != nil || rec == nil {
		t.Fatalf("expected broad definition to accept, got %+v, %v", rec, err)
	}
}

func TestResolveAllDedupesIdenticalNames(t *testing.T) {
	provider := &testsupport.FakeProvider{
		Nearby: func(_ context.Context, center geo.Coordinate, _ float64, keyword string) ([]place.Candidate, error) {
			at := testsupport.Offset(center, 20)
			id := "g-" + center.String()
			return []place.Candidate{testsupport.Candidate(id, "Joe's Pizza", "", at.Lat, at.Lon, place.MethodNearby)}, nil
		},
	}
	svc := newService(t, provider, resolver.Options{})
	defs := []resolver.Definition{
		definition("a", "Joe's Pizza", anchor),
		definition("b", "JOE'S PIZZA", testsupport.Offset(anchor, 2000)),
	}

	got, err := svc.ResolveAll(context.Background(), defs, nil)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only the first definition, got %+v", got)
	}
}

func TestResolveAllSkipsExistingAndDuplicates(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{
		"BK Jani":     "g1",
		"Kebab House": "g2",
		"Mamas Too":   "g3",
	})}
	svc := newService(t, provider, resolver.Options{
		IsDuplicate: func(a, b place.Record) bool { return a.ExternalID != "" && a.ExternalID == b.ExternalID },
	})
	defs := []resolver.Definition{
		definition("a", "BK Jani", anchor),
		definition("b", "Kebab House", anchor),
		definition("c", "Mamas Too", anchor),
	}
	existing := []place.Record{
		{ID: "x", Name: "BK Jani Restaurant"},
		{ID: "y", Name: "Unrelated", ExternalID: "g3"},
	}

	got, err := svc.ResolveAll(context.Background(), defs, existing)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only Kebab House, got %+v", got)
	}
}

func TestSearchAndInRegion(t *testing.T) {
	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{
		"Zaytoons":    "g1",
		"Alis Roti":   "g2",
		"Uptown Gyro": "g3",
	})}
	uptown := geo.Coordinate{Lat: 40.85, Lon: -73.93}
	defs := []resolver.Definition{
		definition("z", "Zaytoons", anchor),
		definition("r", "Alis Roti", anchor),
		definition("u", "Uptown Gyro", uptown),
	}
	defs[1].FallbackAddress = "1267 Fulton St"
	svc := newService(t, provider, resolver.Options{Definitions: defs})

	got, err := svc.Search(context.Background(), "o", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 || got[0].Name != "Alis Roti" || got[1].Name != "Uptown Gyro" || got[2].Name != "Zaytoons" {
		t.Fatalf("expected name-sorted results, got %+v", got)
	}
	if got, _ := svc.Search(context.Background(), "fulton", nil); len(got) != 1 || got[0].ID != "r" {
		t.Fatalf("expected address match, got %+v", got)
	}
	if got, _ := svc.Search(context.Background(), "  ", nil); got != nil {
		t.Fatalf("blank query should return nothing, got %+v", got)
	}

	inRegion, err := svc.InRegion(context.Background(), geo.RegionAround(uptown, 1000), nil)
	if err != nil {
		t.Fatalf("InRegion: %v", err)
	}
	if len(inRegion) != 1 || inRegion[0].ID != "u" {
		t.Fatalf("expected only the uptown definition, got %+v", inRegion)
	}
}

func newSnapshotStore(t *testing.T) *snapshot.Store[place.Record] {
	t.Helper()
	return snapshot.New[place.Record](snapshot.NewFileBlob(filepath.Join(t.TempDir(), "resolved.json")), nil)
}

func TestWarmStaleVersionTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	snap := newSnapshotStore(t)
	stale := []place.Record{{ID: "a", Name: "BK Jani", Coordinate: anchor, Address: "old"}}
	if err := snap.Save(ctx, 1, stale, "whatever"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	svc := newService(t, provider, resolver.Options{
		Definitions:     []resolver.Definition{definition("a", "BK Jani", anchor)},
		Snapshot:        snap,
		SnapshotVersion: 2,
	})

	if !svc.Warm(ctx) {
		t.Fatal("expected a refresh for a stale snapshot version")
	}
	svc.Wait()
	if provider.CallCount() == 0 {
		t.Fatal("refresh did not reach the provider")
	}
	saved, ok := snap.Load(ctx, 2)
	if !ok || len(saved.Entities) != 1 || saved.Entities[0].ExternalID != "g1" {
		t.Fatalf("expected refreshed snapshot, got %+v (ok=%v)", saved, ok)
	}
}

func TestWarmFreshSnapshotServesFromCache(t *testing.T) {
	ctx := context.Background()
	snap := newSnapshotStore(t)
	defs := []resolver.Definition{definition("a", "BK Jani", anchor)}
	defs[0].FallbackAddress = "276 Knickerbocker Ave"

	first := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	svc := newService(t, first, resolver.Options{Definitions: defs, Snapshot: snap})
	if _, err := svc.Resolve(ctx, defs[0]); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	svc.Wait()

	second := &testsupport.FakeProvider{}
	warm := newService(t, second, resolver.Options{Definitions: defs, Snapshot: snap})
	if warm.Warm(ctx) {
		t.Fatal("fresh snapshot should not trigger a refresh")
	}
	rec, err := warm.Resolve(ctx, defs[0])
	if err != nil || rec == nil || rec.ExternalID != "g1" {
		t.Fatalf("expected seeded record, got %+v, %v", rec, err)
	}
	if second.CallCount() != 0 {
		t.Fatalf("seeded cache still called provider %d times", second.CallCount())
	}
}

func TestWarmIncompleteSnapshotTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	snap := newSnapshotStore(t)
	defs := []resolver.Definition{definition("a", "BK Jani", anchor)}

	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1"})}
	svc := newService(t, provider, resolver.Options{Definitions: defs, Snapshot: snap})
	if _, err := svc.Resolve(ctx, defs[0]); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	svc.Wait()

	current, err := snap.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if current.Entities[0].Address != "" {
		t.Fatalf("expected an address-less snapshot, got %+v", current.Entities)
	}

	again := newService(t, &testsupport.FakeProvider{}, resolver.Options{Definitions: defs, Snapshot: snap})
	if !again.Warm(ctx) {
		t.Fatal("snapshot without any address should be refreshed")
	}
}

func TestWarmChangedDefinitionsTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	snap := newSnapshotStore(t)
	defs := []resolver.Definition{definition("a", "BK Jani", anchor)}
	defs[0].FallbackAddress = "276 Knickerbocker Ave"

	provider := &testsupport.FakeProvider{Nearby: nearbyByName(map[string]string{"BK Jani": "g1", "Kebab House": "g2"})}
	svc := newService(t, provider, resolver.Options{Definitions: defs, Snapshot: snap})
	if _, err := svc.Resolve(ctx, defs[0]); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	svc.Wait()

	changed := append(defs, definition("b", "Kebab House", anchor))
	again := newService(t, provider, resolver.Options{Definitions: changed, Snapshot: snap})
	if !again.Warm(ctx) {
		t.Fatal("a new definition should refresh the snapshot")
	}
}

func TestWarmWithoutSnapshotStore(t *testing.T) {
	svc := newService(t, &testsupport.FakeProvider{}, resolver.Options{
		Definitions: []resolver.Definition{definition("a", "BK Jani", anchor)},
	})
	if svc.Warm(context.Background()) {
		t.Fatal("no snapshot store means nothing to refresh")
	}
}
