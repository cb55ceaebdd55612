package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"placematch/internal/geo"
	"placematch/internal/logging"
	"placematch/internal/matcher"
	"placematch/internal/place"
	"placematch/internal/snapshot"
	"placematch/internal/textutil"
)

// Defaults for Options fields left zero.
const (
	DefaultPositiveTTL     = 12 * time.Hour
	DefaultNegativeTTL     = 10 * time.Minute
	DefaultConcurrency     = 4
	DefaultResolveTimeout  = 30 * time.Second
	DefaultSnapshotVersion = 5

	persistTimeout = 15 * time.Second
)

// Persister stores an external id discovered for a local record.
type Persister interface {
	PersistExternalID(ctx context.Context, id, externalID string) error
}

// Options configures a Service.
type Options struct {
	Definitions []Definition
	// Matcher runs the search, score, and classify pipeline. It should be
	// built with ExcludeClosed set.
	Matcher *matcher.Matcher
	// Store receives external ids after positive resolutions. Optional.
	Store Persister
	// IsDuplicate extends the name-based conflict check. Optional.
	IsDuplicate DuplicateFunc

	Snapshot        *snapshot.Store[place.Record]
	SnapshotVersion int
	// NeedsRefresh judges a loaded snapshot incomplete. The default treats
	// a snapshot where no record has an address as incomplete.
	NeedsRefresh func([]place.Record) bool

	PositiveTTL    time.Duration
	NegativeTTL    time.Duration
	Concurrency    int
	ResolveTimeout time.Duration
	Logger         *slog.Logger
	Clock          func() time.Time
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits       int64
	Executions int64
	Shared     int64
	Positive   int
	Negative   int
}

// Service resolves definitions through the matcher and caches the results.
type Service struct {
	opts     Options
	defs     []Definition
	source   string
	etag     string
	logger   *slog.Logger
	group    singleflight.Group
	bg       sync.WaitGroup
	saveMu   sync.Mutex
	savePend atomic.Bool

	hits       atomic.Int64
	executions atomic.Int64
	shared     atomic.Int64

	mu          sync.Mutex
	byID        map[string]entry
	byExternal  map[string]entry
	externalIDs map[string]string
}

// New validates opts and returns a Service with empty caches.
func New(opts Options) (*Service, error) {
	if opts.Matcher == nil {
		return nil, errors.New("resolver: matcher is required")
	}
	if opts.PositiveTTL <= 0 {
		opts.PositiveTTL = DefaultPositiveTTL
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = DefaultNegativeTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	if opts.SnapshotVersion <= 0 {
		opts.SnapshotVersion = DefaultSnapshotVersion
	}
	if opts.NeedsRefresh == nil {
		opts.NeedsRefresh = allMissingAddress
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	defs := make([]Definition, 0, len(opts.Definitions))
	seen := make(map[string]struct{}, len(opts.Definitions))
	for _, def := range opts.Definitions {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate definition id %q", place.ErrInvalidID, def.ID)
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def.withDefaults())
	}

	return &Service{
		opts:        opts,
		defs:        defs,
		source:      opts.Matcher.Provider().Name(),
		etag:        definitionsTag(defs),
		logger:      logging.NewComponentLogger(opts.Logger, "resolver"),
		byID:        make(map[string]entry),
		byExternal:  make(map[string]entry),
		externalIDs: make(map[string]string),
	}, nil
}

// Definitions returns the configured definitions.
func (s *Service) Definitions() []Definition {
	return slices.Clone(s.defs)
}

// Resolve returns the record for def, or nil when the index has no
// acceptable match. Errors come from the provider or from ctx; either way a
// negative entry is cached so the next attempt waits for the negative TTL.
func (s *Service) Resolve(ctx context.Context, def Definition) (*place.Record, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	def = def.withDefaults()

	s.mu.Lock()
	e, ok := s.lookup(def, s.opts.Clock())
	s.mu.Unlock()
	if ok {
		s.hits.Add(1)
		return cloneRecord(e.record), nil
	}
	return s.await(ctx, def, false)
}

// await joins or starts the single pipeline run for def.ID. A caller whose
// ctx ends stops waiting; the run itself continues and fills the cache.
func (s *Service) await(ctx context.Context, def Definition, force bool) (*place.Record, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(def.ID, func() (any, error) {
		return s.run(detached, def, force)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.shared.Add(1)
		}
		rec, _ := res.Val.(*place.Record)
		return cloneRecord(rec), res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) run(ctx context.Context, def Definition, force bool) (*place.Record, error) {
	if !force {
		s.mu.Lock()
		e, ok := s.lookup(def, s.opts.Clock())
		s.mu.Unlock()
		if ok {
			s.hits.Add(1)
			return e.record, nil
		}
	}

	s.executions.Add(1)
	ctx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	defer cancel()

	rec, err := s.pipeline(ctx, def)

	s.mu.Lock()
	if rec != nil || !force || s.byID[def.ID].record == nil {
		s.store(def, rec, s.opts.Clock())
	}
	s.mu.Unlock()

	if rec != nil {
		s.persistAsync(def.ID, rec.ExternalID)
		s.saveAsync()
	}
	return rec, err
}

func (s *Service) pipeline(ctx context.Context, def Definition) (*place.Record, error) {
	decision, err := s.opts.Matcher.Match(ctx, def.Record())
	if err != nil {
		logging.WarnWithContext(s.logger, "definition lookup failed", "resolve_failed",
			logging.String(logging.FieldPlaceID, def.ID),
			logging.String("name", def.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retried after the negative cache expires"),
		)
		return nil, fmt.Errorf("resolve %s: %w", def.Name, err)
	}
	if decision.Status != place.StatusMatched || decision.Candidate == nil {
		s.logger.Debug("definition not matched",
			logging.String(logging.FieldPlaceID, def.ID),
			logging.String("status", string(decision.Status)),
			logging.String("reason", decision.ReasonSummary()))
		return nil, nil
	}

	c := decision.Candidate
	coord := def.Anchor
	if c.HasCoordinate() {
		coord = *c.Coordinate
	}
	if !def.AcceptRegion().Contains(coord) {
		s.logger.Debug("match outside search area",
			logging.String(logging.FieldPlaceID, def.ID),
			logging.String(logging.FieldExternalID, c.ExternalID),
			logging.String("coordinate", coord.String()))
		return nil, nil
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = def.Name
	}
	address := strings.TrimSpace(c.Address)
	if address == "" {
		address = def.FallbackAddress
	}
	confidence := def.Confidence
	if confidence == nil && decision.Score != nil {
		v := float64(*decision.Score) / maxScore
		if v > 1 {
			v = 1
		}
		confidence = &v
	}
	return &place.Record{
		ID:          def.ID,
		Name:        name,
		Coordinate:  coord,
		Address:     address,
		Status:      def.Status,
		Rating:      def.Rating,
		RatingCount: def.RatingCount,
		Confidence:  confidence,
		Source:      s.source,
		ExternalID:  c.ExternalID,
	}, nil
}

// maxScore is the highest score the matcher can award.
const maxScore = 17.0

func (s *Service) persistAsync(id, externalID string) {
	if s.opts.Store == nil || externalID == "" {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.opts.Store.PersistExternalID(ctx, id, externalID); err != nil {
			logging.WarnWithContext(s.logger, "persist external id failed", "persist_external_id_failed",
				logging.String(logging.FieldPlaceID, id),
				logging.String(logging.FieldExternalID, externalID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next run resolves this place again"),
			)
			return
		}
		s.logger.Debug("external id persisted",
			logging.String(logging.FieldPlaceID, id),
			logging.String(logging.FieldExternalID, externalID))
	}()
}

// saveAsync schedules one snapshot write. Triggers that arrive while a write
// is queued fold into it.
func (s *Service) saveAsync() {
	if s.opts.Snapshot == nil || !s.savePend.CompareAndSwap(false, true) {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		s.savePend.Store(false)

		entities := s.Entities()
		if err := s.opts.Snapshot.Save(context.Background(), s.opts.SnapshotVersion, entities, s.etag); err != nil {
			logging.WarnWithContext(s.logger, "snapshot save failed", "snapshot_save_failed",
				logging.String("location", s.opts.Snapshot.Location()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next start resolves from scratch"),
			)
		}
	}()
}

// Wait blocks until background persistence, snapshot writes, and refreshes
// have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

// Entities returns the fresh positive records, sorted by name.
func (s *Service) Entities() []place.Record {
	now := s.opts.Clock()
	s.mu.Lock()
	out := make([]place.Record, 0, len(s.byID))
	for _, e := range s.byID {
		if e.record != nil && e.fresh(now, s.opts.PositiveTTL, s.opts.NegativeTTL) {
			out = append(out, *e.record)
		}
	}
	s.mu.Unlock()
	sortByName(out)
	return out
}

// Stats reports cache counters.
func (s *Service) Stats() Stats {
	st := Stats{
		Hits:       s.hits.Load(),
		Executions: s.executions.Load(),
		Shared:     s.shared.Load(),
	}
	s.mu.Lock()
	for _, e := range s.byID {
		if e.record != nil {
			st.Positive++
		} else {
			st.Negative++
		}
	}
	s.mu.Unlock()
	return st
}

// ResolveAll resolves defs concurrently and returns the records that do not
// conflict with existing or with each other, in definition order. Failures
// for single definitions are logged and skipped; only ctx ends the call
// early.
func (s *Service) ResolveAll(ctx context.Context, defs []Definition, existing []place.Record) ([]place.Record, error) {
	results := make([]*place.Record, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, def := range defs {
		g.Go(func() error {
			rec, err := s.Resolve(gctx, def)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Debug("definition skipped",
					logging.String(logging.FieldPlaceID, def.ID),
					logging.Error(err))
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.filter(results, existing), nil
}

func (s *Service) filter(results []*place.Record, existing []place.Record) []place.Record {
	used := newNameSet(nil)
	accepted := slices.Clone(existing)
	var out []place.Record
	for _, rec := range results {
		if rec == nil {
			continue
		}
		if used.has(rec.Name) || Conflicts(*rec, accepted, s.opts.IsDuplicate) {
			s.logger.Debug("resolved place conflicts with a known place",
				logging.String(logging.FieldPlaceID, rec.ID),
				logging.String("name", rec.Name))
			continue
		}
		used.add(rec.Name)
		accepted = append(accepted, *rec)
		out = append(out, *rec)
	}
	return out
}

// InRegion resolves the definitions whose anchor, or cached coordinate,
// falls inside region.
func (s *Service) InRegion(ctx context.Context, region geo.Region, existing []place.Record) ([]place.Record, error) {
	s.mu.Lock()
	var selected []Definition
	for _, def := range s.defs {
		inside := region.Contains(def.Anchor)
		if !inside {
			if e, ok := s.byID[def.ID]; ok && e.record != nil {
				inside = region.Contains(e.record.Coordinate)
			}
		}
		if inside {
			selected = append(selected, def)
		}
	}
	s.mu.Unlock()
	return s.ResolveAll(ctx, selected, existing)
}

// Search resolves the definitions whose name or fallback address contains
// query and returns them sorted by name.
func (s *Service) Search(ctx context.Context, query string, existing []place.Record) ([]place.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	var selected []Definition
	for _, def := range s.defs {
		if def.Matches(query) {
			selected = append(selected, def)
		}
	}
	out, err := s.ResolveAll(ctx, selected, existing)
	if err != nil {
		return nil, err
	}
	sortByName(out)
	return out, nil
}

// Warm seeds the caches from the snapshot. When the snapshot is missing,
// written by another version, built from different definitions, or judged
// incomplete, it starts a background refresh of every definition and
// reports true.
func (s *Service) Warm(ctx context.Context) bool {
	if s.opts.Snapshot == nil || len(s.defs) == 0 {
		return false
	}
	snap, ok := s.opts.Snapshot.Load(ctx, s.opts.SnapshotVersion)
	refresh := !ok
	if ok {
		s.seed(snap)
		switch {
		case snap.ETag != s.etag:
			s.logger.Info("definitions changed since snapshot; refreshing",
				logging.String(logging.FieldEventType, "snapshot_definitions_changed"))
			refresh = true
		case s.opts.NeedsRefresh(snap.Entities):
			s.logger.Info("snapshot looks incomplete; refreshing",
				logging.String(logging.FieldEventType, "snapshot_incomplete"))
			refresh = true
		}
	}
	if refresh {
		s.refresh(context.WithoutCancel(ctx))
	}
	return refresh
}

func (s *Service) seed(snap *snapshot.Snapshot[place.Record]) {
	known := make(map[string]Definition, len(s.defs))
	for _, def := range s.defs {
		known[def.ID] = def
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seeded := 0
	for i := range snap.Entities {
		rec := snap.Entities[i]
		def, ok := known[rec.ID]
		if !ok {
			continue
		}
		s.store(def, &rec, snap.SavedAt)
		seeded++
	}
	s.logger.Debug("caches seeded from snapshot",
		logging.Int("entities", seeded),
		logging.String("saved_at", snap.SavedAt.Format(time.RFC3339)))
}

func (s *Service) refresh(ctx context.Context) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for _, def := range s.defs {
			g.Go(func() error {
				_, _ = s.await(gctx, def, true)
				return nil
			})
		}
		_ = g.Wait()
		s.logger.Info("definitions refreshed",
			logging.Int("definitions", len(s.defs)),
			logging.String(logging.FieldEventType, "resolver_refreshed"))
	}()
}

func allMissingAddress(records []place.Record) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if strings.TrimSpace(r.Address) != "" {
			return false
		}
	}
	return true
}

func sortByName(records []place.Record) {
	slices.SortStableFunc(records, func(a, b place.Record) int {
		if c := strings.Compare(textutil.NormalizeName(a.Name), textutil.NormalizeName(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// definitionsTag fingerprints the definitions so a snapshot built from a
// different list is refreshed.
func definitionsTag(defs []Definition) string {
	h := sha256.New()
	for _, def := range defs {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s\n", def.ID, def.Name, def.Anchor, def.FallbackAddress, def.SearchQuery, def.ExternalID)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
