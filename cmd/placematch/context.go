package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"placematch/internal/config"
	"placematch/internal/logging"
	"placematch/internal/matcher"
	"placematch/internal/place"
	"placematch/internal/resolver"
	"placematch/internal/search"
	"placematch/internal/search/elastic"
	"placematch/internal/search/google"
	"placematch/internal/snapshot"
	"placematch/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	storeMu sync.Mutex
	store   *store.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the shared logger, falling back to stderr console output when
// the configured sinks cannot be opened.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
			logger.Warn("falling back to stderr logging",
				logging.Error(err),
				logging.String(logging.FieldEventType, "logger_fallback"),
			)
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openStore() (*store.Store, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open place store: %w", err)
	}
	c.store = s
	return s, nil
}

func (c *commandContext) close() {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

// newProvider builds the configured place index client.
func newProvider(cfg *config.Config) (search.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderElastic:
		return newElasticClient(cfg)
	case config.ProviderGoogle:
		return google.New(google.Config{
			APIKey:     cfg.Provider.GoogleAPIKey,
			API:        google.API(cfg.Provider.GoogleAPI),
			BaseURL:    cfg.Provider.GoogleBaseURL,
			MaxResults: cfg.Matching.MaxCandidates,
			HTTPClient: httpClient(cfg),
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalid, cfg.Provider.Kind)
	}
}

func newElasticClient(cfg *config.Config) (*elastic.Client, error) {
	return elastic.New(elastic.Config{
		URL:        cfg.Provider.ElasticURL,
		Index:      cfg.Provider.ElasticIndex,
		MaxResults: cfg.Matching.MaxCandidates,
		HTTPClient: httpClient(cfg),
	})
}

// matcherOptions maps the [matching] and [provider] sections onto matcher options.
func matcherOptions(cfg *config.Config, logger *slog.Logger) matcher.Options {
	m := cfg.Matching
	return matcher.Options{
		RadiusMeters:         float64(m.RadiusMeters),
		FallbackRadiusMeters: float64(m.FallbackRadiusMeters),
		MaxCandidates:        m.MaxCandidates,
		Thresholds: matcher.Thresholds{
			MinScore:          m.MinScore,
			AmbiguityGap:      m.AmbiguityGap,
			FarDistanceMeters: float64(m.FarDistanceMeters),
		},
		Retry: search.Policy{
			MaxAttempts: cfg.Provider.MaxAttempts,
			Delay:       cfg.RetryDelay(),
		},
		ExcludeClosed: m.ExcludeClosed,
		Logger:        logger,
	}
}

// newSnapshotStore returns nil when snapshots are disabled.
func newSnapshotStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*snapshot.Store[place.Record], error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	return openSnapshotStore(ctx, cfg, logger)
}

// openSnapshotStore builds the configured backend whether or not snapshots
// are enabled, for inspection commands.
func openSnapshotStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*snapshot.Store[place.Record], error) {
	var blob snapshot.Blob
	switch cfg.Snapshot.Backend {
	case config.SnapshotS3:
		name := filepath.Base(cfg.Snapshot.Path)
		s3Blob, err := snapshot.NewS3BlobFromEnv(ctx, cfg.Snapshot.S3Region, cfg.Snapshot.S3Bucket, cfg.Snapshot.S3Prefix, name)
		if err != nil {
			return nil, err
		}
		blob = s3Blob
	default:
		blob = snapshot.NewFileBlob(cfg.Snapshot.Path)
	}
	return snapshot.New[place.Record](blob, logger), nil
}

// existenceTolerantStore persists external ids for definitions that were
// imported into the store and ignores the rest.
type existenceTolerantStore struct {
	store *store.Store
}

func (s existenceTolerantStore) PersistExternalID(ctx context.Context, id, externalID string) error {
	err := s.store.PersistExternalID(ctx, id, externalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// newResolverService wires definitions, matcher, store, and snapshot into a
// resolver. Closed candidates are always excluded for curated definitions.
func (c *commandContext) newResolverService(ctx context.Context) (*resolver.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Resolver.DefinitionsPath) == "" {
		return nil, fmt.Errorf("%w: resolver.definitions_path is not set", config.ErrInvalid)
	}
	defs, err := resolver.LoadDefinitions(cfg.Resolver.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	logger := c.log()
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	opts := matcherOptions(cfg, logger)
	opts.ExcludeClosed = true
	m, err := matcher.New(provider, opts)
	if err != nil {
		return nil, err
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	snap, err := newSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return resolver.New(resolver.Options{
		Definitions:     defs,
		Matcher:         m,
		Store:           existenceTolerantStore{store: st},
		IsDuplicate:     st.IsDuplicate,
		Snapshot:        snap,
		SnapshotVersion: cfg.Snapshot.Version,
		PositiveTTL:     cfg.PositiveTTL(),
		NegativeTTL:     cfg.NegativeTTL(),
		Concurrency:     cfg.Resolver.Concurrency,
		ResolveTimeout:  cfg.ResolveTimeout(),
		Logger:          logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
