package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"placematch/internal/geo"
	"placematch/internal/logging"
	"placematch/internal/place"
	"placematch/internal/search"
	"placematch/internal/textutil"
)

// Search defaults.
const (
	DefaultRadiusMeters         = 120.0
	DefaultFallbackRadiusMeters = 300.0
	DefaultMaxCandidates        = 6
)

// Options configures a Matcher. Zero values fall back to the defaults.
type Options struct {
	RadiusMeters         float64
	FallbackRadiusMeters float64
	MaxCandidates        int
	Thresholds           Thresholds
	Retry                search.Policy
	// ExcludeClosed drops candidates whose name marks them permanently
	// closed, unless every candidate in the pool is.
	ExcludeClosed bool
	Logger        *slog.Logger
}

// DefaultOptions returns the stock radii, candidate cap, and thresholds.
func DefaultOptions() Options {
	return Options{
		RadiusMeters:         DefaultRadiusMeters,
		FallbackRadiusMeters: DefaultFallbackRadiusMeters,
		MaxCandidates:        DefaultMaxCandidates,
		Thresholds:           DefaultThresholds(),
		Retry:                search.DefaultPolicy(),
	}
}

// Matcher resolves records against one search provider.
type Matcher struct {
	provider search.Provider
	opts     Options
	logger   *slog.Logger
}

// New builds a Matcher around provider.
func New(provider search.Provider, opts Options) (*Matcher, error) {
	if provider == nil {
		return nil, errors.New("matcher: search provider is required")
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadiusMeters
	}
	if opts.FallbackRadiusMeters < 0 {
		opts.FallbackRadiusMeters = 0
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	logger := logging.NewComponentLogger(opts.Logger, "matcher")
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	return &Matcher{provider: provider, opts: opts, logger: logger}, nil
}

// Provider returns the underlying search provider.
func (m *Matcher) Provider() search.Provider {
	return m.provider
}

// Thresholds returns the classifier thresholds in effect.
func (m *Matcher) Thresholds() Thresholds {
	return m.opts.Thresholds
}

// Match searches for r, scores the candidates, and classifies the result.
// Provider failures that survive retrying are returned as errors; an empty
// search is an unmatched decision, not an error.
func (m *Matcher) Match(ctx context.Context, r place.Record) (place.Decision, error) {
	candidates, usedText, err := m.Gather(ctx, r)
	if err != nil {
		return place.Decision{}, err
	}
	if len(candidates) == 0 {
		decision := Classify(nil, m.opts.Thresholds)
		m.logDecision(r, decision, 0)
		return decision, nil
	}

	scored := Score(r, candidates)
	if !usedText && len(scored) > 0 && scored[0].Score < m.opts.Thresholds.MinScore {
		m.logger.Debug("best score below minimum, escalating to text search",
			logging.String(logging.FieldPlaceID, r.ID),
			logging.Int("best_score", scored[0].Score),
			logging.Int("min_score", m.opts.Thresholds.MinScore),
		)
		extra, err := m.text(ctx, r)
		if err != nil {
			return place.Decision{}, err
		}
		if len(extra) > 0 {
			candidates = append(candidates, extra...)
			scored = Score(r, candidates)
		}
	}

	decision := Classify(scored, m.opts.Thresholds)
	m.logDecision(r, decision, len(scored))
	return decision, nil
}

// Gather runs the search tiers in order and stops at the first tier that
// returns anything. usedText reports whether the text tier ran.
func (m *Matcher) Gather(ctx context.Context, r place.Record) (candidates []place.Candidate, usedText bool, err error) {
	if phone, ok := textutil.NormalizePhone(r.Phone); ok {
		candidates, err = m.tier(ctx, "phone", func(ctx context.Context) ([]place.Candidate, error) {
			return m.provider.FindByPhone(ctx, phone)
		})
		if err != nil || len(candidates) > 0 {
			return candidates, false, err
		}
	} else if raw := strings.TrimSpace(r.Phone); raw != "" {
		m.logger.Debug("phone rejected, skipping phone search",
			logging.String(logging.FieldPlaceID, r.ID),
			logging.String("phone", raw),
			logging.String(logging.FieldDecisionReason, "fewer than 7 digits after normalization"),
		)
	}

	if r.HasCoordinate() {
		candidates, err = m.nearby(ctx, r, m.opts.RadiusMeters)
		if err != nil || len(candidates) > 0 {
			return candidates, false, err
		}
		if m.opts.FallbackRadiusMeters > m.opts.RadiusMeters {
			candidates, err = m.nearby(ctx, r, m.opts.FallbackRadiusMeters)
			if err != nil || len(candidates) > 0 {
				return candidates, false, err
			}
		}
	}

	candidates, err = m.text(ctx, r)
	return candidates, true, err
}

func (m *Matcher) nearby(ctx context.Context, r place.Record, radius float64) ([]place.Candidate, error) {
	return m.tier(ctx, "nearby", func(ctx context.Context) ([]place.Candidate, error) {
		return m.provider.FindNearby(ctx, r.Coordinate, radius, r.Keyword())
	})
}

func (m *Matcher) text(ctx context.Context, r place.Record) ([]place.Candidate, error) {
	query := TextQuery(r)
	if query == "" {
		return nil, nil
	}
	var bias *geo.Coordinate
	if r.HasCoordinate() {
		c := r.Coordinate
		bias = &c
	}
	return m.tier(ctx, "text", func(ctx context.Context) ([]place.Candidate, error) {
		return m.provider.FindByText(ctx, query, bias)
	})
}

func (m *Matcher) tier(ctx context.Context, name string, call func(context.Context) ([]place.Candidate, error)) ([]place.Candidate, error) {
	candidates, err := search.Do(ctx, m.opts.Retry, m.provider.Name()+" "+name, call)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", name, err)
	}
	if m.opts.ExcludeClosed {
		candidates = withoutClosed(candidates)
	}
	if len(candidates) > m.opts.MaxCandidates {
		candidates = candidates[:m.opts.MaxCandidates]
	}
	return candidates, nil
}

// TextQuery builds the free-text query for r: an explicit search query as
// is, otherwise name plus display location, or the name alone.
func TextQuery(r place.Record) string {
	if q := strings.TrimSpace(r.SearchQuery); q != "" {
		return q
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ""
	}
	if loc := r.DisplayLocation(); loc != "" {
		return name + " " + loc
	}
	return name
}

func withoutClosed(candidates []place.Candidate) []place.Candidate {
	open := make([]place.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.LikelyClosed() {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return candidates
	}
	return open
}

func (m *Matcher) logDecision(r place.Record, d place.Decision, scored int) {
	reason := d.Reason
	if reason == "" {
		reason = strings.Join(d.Reasons, "|")
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldPlaceID, r.ID),
		logging.String("place_name", r.Name),
		logging.Int("candidates_scored", scored),
	}
	attrs = append(attrs, logging.DecisionAttrs("place_match", string(d.Status), reason)...)
	if d.Candidate != nil {
		attrs = append(attrs,
			logging.String(logging.FieldExternalID, d.Candidate.ExternalID),
			logging.String("candidate_name", d.Candidate.Name),
			logging.String("method", string(d.Method)),
		)
	}
	if d.Score != nil {
		attrs = append(attrs, logging.Int("score", *d.Score))
	}
	if dist, ok := d.RoundedDistance(); ok {
		attrs = append(attrs, logging.Int("distance_m", dist))
	}
	m.logger.Info("place match decision", logging.Args(attrs...)...)
}
