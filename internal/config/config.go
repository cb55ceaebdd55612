package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrInvalid marks configuration that loaded but cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ReportDir string `toml:"report_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Provider selects and configures the external place index.
type Provider struct {
	Kind           string `toml:"kind"`
	GoogleAPIKey   string `toml:"google_api_key"`
	GoogleAPI      string `toml:"google_api"`
	GoogleBaseURL  string `toml:"google_base_url"`
	ElasticURL     string `toml:"elastic_url"`
	ElasticIndex   string `toml:"elastic_index"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryDelayMS   int    `toml:"retry_delay_ms"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Matching holds the tier radii and classification thresholds.
type Matching struct {
	RadiusMeters         int  `toml:"radius_meters"`
	FallbackRadiusMeters int  `toml:"fallback_radius_meters"`
	MaxCandidates        int  `toml:"max_candidates"`
	MinScore             int  `toml:"min_score"`
	AmbiguityGap         int  `toml:"ambiguity_gap"`
	FarDistanceMeters    int  `toml:"far_distance_meters"`
	ExcludeClosed        bool `toml:"exclude_closed"`
}

// Batch controls record selection, pacing, and report destinations.
type Batch struct {
	Limit           int    `toml:"limit"`
	Offset          int    `toml:"offset"`
	PageSize        int    `toml:"page_size"`
	DelayMS         int    `toml:"delay_ms"`
	State           string `toml:"state"`
	Status          string `toml:"status"`
	MatchedReport   string `toml:"matched_report"`
	ReviewReport    string `toml:"review_report"`
	UnmatchedReport string `toml:"unmatched_report"`
}

// Resolver configures the on-demand resolution cache.
type Resolver struct {
	DefinitionsPath       string `toml:"definitions_path"`
	PositiveTTLMinutes    int    `toml:"positive_ttl_minutes"`
	NegativeTTLMinutes    int    `toml:"negative_ttl_minutes"`
	Concurrency           int    `toml:"concurrency"`
	ResolveTimeoutSeconds int    `toml:"resolve_timeout_seconds"`
}

// Snapshot configures persistence of resolved entities.
type Snapshot struct {
	Enabled  bool   `toml:"enabled"`
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Version  int    `toml:"version"`
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
	S3Region string `toml:"s3_region"`
}

// Store configures the local SQLite place store.
type Store struct {
	Path string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for placematch.
//
// Configuration sections by subsystem:
//   - Paths: data, log, report, and cache directories
//   - Provider: external index selection and credentials
//   - Matching: search radii and scoring thresholds
//   - Batch: record selection and CSV report locations
//   - Resolver: cache TTLs and fan-out limits
//   - Snapshot: on-disk or S3 snapshot of resolved places
//   - Store: SQLite database location
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Provider Provider `toml:"provider"`
	Matching Matching `toml:"matching"`
	Batch    Batch    `toml:"batch"`
	Resolver Resolver `toml:"resolver"`
	Snapshot Snapshot `toml:"snapshot"`
	Store    Store    `toml:"store"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("placematch.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, report, and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ReportDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PositiveTTL is how long a matched resolver entry stays fresh.
func (c *Config) PositiveTTL() time.Duration {
	return time.Duration(c.Resolver.PositiveTTLMinutes) * time.Minute
}

// NegativeTTL is how long a failed resolver lookup suppresses retries.
func (c *Config) NegativeTTL() time.Duration {
	return time.Duration(c.Resolver.NegativeTTLMinutes) * time.Minute
}

// ResolveTimeout bounds a single resolver lookup.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Resolver.ResolveTimeoutSeconds) * time.Second
}

// ProviderTimeout bounds a single HTTP call to the place index.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// RetryDelay is the base linear backoff between provider attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Provider.RetryDelayMS) * time.Millisecond
}

// BatchDelay is the pause between records in a batch run.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Batch.DelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
