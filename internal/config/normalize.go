package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeMatching()
	if err := c.normalizeBatch(); err != nil {
		return err
	}
	if err := c.normalizeResolver(); err != nil {
		return err
	}
	if err := c.normalizeSnapshot(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.report_dir", &c.Paths.ReportDir, defaultReportDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeProvider() {
	p := &c.Provider
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	if p.Kind == "" {
		p.Kind = defaultProviderKind
	}
	p.GoogleAPIKey = strings.TrimSpace(p.GoogleAPIKey)
	if p.GoogleAPIKey == "" {
		for _, name := range []string{"GOOGLE_MAPS_API_KEY", "google_maps_api_key"} {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				p.GoogleAPIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	p.GoogleAPI = strings.ToLower(strings.TrimSpace(p.GoogleAPI))
	if p.GoogleAPI == "" {
		p.GoogleAPI = defaultGoogleAPI
	}
	p.GoogleBaseURL = strings.TrimRight(strings.TrimSpace(p.GoogleBaseURL), "/")
	p.ElasticURL = strings.TrimRight(strings.TrimSpace(p.ElasticURL), "/")
	if p.ElasticURL == "" {
		if value, ok := os.LookupEnv("ELASTICSEARCH_URL"); ok {
			p.ElasticURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	p.ElasticIndex = strings.TrimSpace(p.ElasticIndex)
	if p.ElasticIndex == "" {
		p.ElasticIndex = defaultElasticIndex
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultProviderTimeout
	}
	if p.RetryDelayMS <= 0 {
		p.RetryDelayMS = defaultRetryDelayMS
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
}

func (c *Config) normalizeMatching() {
	m := &c.Matching
	if m.RadiusMeters <= 0 {
		m.RadiusMeters = defaultRadiusMeters
	}
	if m.FallbackRadiusMeters <= 0 {
		m.FallbackRadiusMeters = defaultFallbackRadiusMeters
	}
	if m.MaxCandidates <= 0 {
		m.MaxCandidates = defaultMaxCandidates
	}
}

func (c *Config) normalizeBatch() error {
	b := &c.Batch
	if b.PageSize <= 0 {
		b.PageSize = defaultPageSize
	}
	b.State = strings.ToUpper(strings.TrimSpace(b.State))
	if strings.EqualFold(b.State, "all") {
		b.State = ""
	}
	b.Status = strings.ToLower(strings.TrimSpace(b.Status))
	if b.Status == "" {
		b.Status = defaultBatchStatus
	}
	reports := []struct {
		name  string
		value *string
		file  string
	}{
		{"batch.matched_report", &b.MatchedReport, "matched.csv"},
		{"batch.review_report", &b.ReviewReport, "review.csv"},
		{"batch.unmatched_report", &b.UnmatchedReport, "unmatched.csv"},
	}
	for _, report := range reports {
		if strings.TrimSpace(*report.value) == "" {
			*report.value = filepath.Join(c.Paths.ReportDir, report.file)
		}
		expanded, err := expandPath(strings.TrimSpace(*report.value))
		if err != nil {
			return fmt.Errorf("%s: %w", report.name, err)
		}
		*report.value = expanded
	}
	return nil
}

func (c *Config) normalizeResolver() error {
	r := &c.Resolver
	if strings.TrimSpace(r.DefinitionsPath) != "" {
		expanded, err := expandPath(strings.TrimSpace(r.DefinitionsPath))
		if err != nil {
			return fmt.Errorf("resolver.definitions_path: %w", err)
		}
		r.DefinitionsPath = expanded
	}
	if r.PositiveTTLMinutes <= 0 {
		r.PositiveTTLMinutes = defaultPositiveTTLMinutes
	}
	if r.NegativeTTLMinutes <= 0 {
		r.NegativeTTLMinutes = defaultNegativeTTLMinutes
	}
	if r.Concurrency <= 0 {
		r.Concurrency = defaultResolverConcurrency
	}
	if r.ResolveTimeoutSeconds <= 0 {
		r.ResolveTimeoutSeconds = defaultResolveTimeout
	}
	return nil
}

func (c *Config) normalizeSnapshot() error {
	s := &c.Snapshot
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultSnapshotBackend
	}
	if s.Version <= 0 {
		s.Version = defaultSnapshotVersion
	}
	s.S3Bucket = strings.TrimSpace(s.S3Bucket)
	s.S3Prefix = strings.Trim(strings.TrimSpace(s.S3Prefix), "/")
	s.S3Region = strings.TrimSpace(s.S3Region)
	if strings.TrimSpace(s.Path) == "" {
		s.Path = filepath.Join(c.Paths.CacheDir, defaultSnapshotFile)
	}
	expanded, err := expandPath(strings.TrimSpace(s.Path))
	if err != nil {
		return fmt.Errorf("snapshot.path: %w", err)
	}
	s.Path = expanded
	return nil
}

func (c *Config) normalizeStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
	expanded, err := expandPath(strings.TrimSpace(c.Store.Path))
	if err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.Path = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
