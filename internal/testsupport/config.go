package testsupport

import (
	"path/filepath"
	"testing"

	"placematch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Paths are already expanded so the result can be used without Load.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Provider.GoogleAPIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Store.Path = filepath.Join(base, "data", "places.db")
	cfgVal.Snapshot.Path = filepath.Join(base, "cache", "resolved_places.json")
	cfgVal.Batch.MatchedReport = filepath.Join(base, "reports", "matched.csv")
	cfgVal.Batch.ReviewReport = filepath.Join(base, "reports", "review.csv")
	cfgVal.Batch.UnmatchedReport = filepath.Join(base, "reports", "unmatched.csv")
	cfgVal.Batch.DelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithGoogleKey sets the Google API key on the test config.
func WithGoogleKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.GoogleAPIKey = key
	}
}

// WithGoogleBaseURL points the Google provider at a test server.
func WithGoogleBaseURL(url, api string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.Kind = config.ProviderGoogle
		b.cfg.Provider.GoogleBaseURL = url
		if api != "" {
			b.cfg.Provider.GoogleAPI = api
		}
	}
}

// WithSnapshot enables the file snapshot backend.
func WithSnapshot() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Snapshot.Enabled = true
		b.cfg.Snapshot.Backend = config.SnapshotFile
	}
}

// WithDefinitions points the resolver at a definitions file.
func WithDefinitions(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolver.DefinitionsPath = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
