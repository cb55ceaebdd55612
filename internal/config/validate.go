package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Failures wrap ErrInvalid.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateProvider,
		c.validateMatching,
		c.validateBatch,
		c.validateSnapshot,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

func (c *Config) validateProvider() error {
	switch c.Provider.Kind {
	case ProviderGoogle:
		if c.Provider.GoogleAPIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("provider.google_api_key is required. Set GOOGLE_MAPS_API_KEY env var or edit %s (create with 'placematch config init')", defaultPath)
		}
		switch c.Provider.GoogleAPI {
		case "legacy", "v1":
		default:
			return fmt.Errorf("provider.google_api must be legacy or v1, got %q", c.Provider.GoogleAPI)
		}
	case ProviderElastic:
		if c.Provider.ElasticURL == "" {
			return fmt.Errorf("provider.elastic_url is required when provider.kind is %q", ProviderElastic)
		}
	default:
		return fmt.Errorf("provider.kind must be %q or %q, got %q", ProviderGoogle, ProviderElastic, c.Provider.Kind)
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.FallbackRadiusMeters < m.RadiusMeters {
		return fmt.Errorf("matching.fallback_radius_meters (%d) must not be below matching.radius_meters (%d)", m.FallbackRadiusMeters, m.RadiusMeters)
	}
	if m.MinScore < 0 {
		return fmt.Errorf("matching.min_score must be non-negative")
	}
	if m.AmbiguityGap < 0 {
		return fmt.Errorf("matching.ambiguity_gap must be non-negative")
	}
	if m.FarDistanceMeters <= 0 {
		return fmt.Errorf("matching.far_distance_meters must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	b := c.Batch
	if b.Limit < 0 || b.Offset < 0 {
		return fmt.Errorf("batch.limit and batch.offset must be non-negative")
	}
	if b.DelayMS < 0 {
		return fmt.Errorf("batch.delay_ms must be non-negative")
	}
	switch b.Status {
	case "all", "matched", "review", "unmatched", "error":
	default:
		return fmt.Errorf("batch.status must be one of all, matched, review, unmatched, error; got %q", b.Status)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	switch c.Snapshot.Backend {
	case SnapshotFile:
	case SnapshotS3:
		if c.Snapshot.Enabled && c.Snapshot.S3Bucket == "" {
			return fmt.Errorf("snapshot.s3_bucket is required when snapshot.backend is %q", SnapshotS3)
		}
	default:
		return fmt.Errorf("snapshot.backend must be %q or %q, got %q", SnapshotFile, SnapshotS3, c.Snapshot.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", strings.TrimSpace(c.Logging.Level))
	}
	return nil
}
