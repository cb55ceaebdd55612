package config

const (
	defaultConfigPath           = "~/.config/placematch/config.toml"
	defaultDataDir              = "~/.local/share/placematch"
	defaultLogDir               = "~/.local/share/placematch/logs"
	defaultReportDir            = "~/.local/share/placematch/reports"
	defaultCacheDir             = "~/.cache/placematch"
	defaultProviderKind         = ProviderGoogle
	defaultGoogleAPI            = "legacy"
	defaultElasticIndex         = "places"
	defaultProviderTimeout      = 15
	defaultRetryDelayMS         = 200
	defaultMaxAttempts          = 5
	defaultRadiusMeters         = 120
	defaultFallbackRadiusMeters = 300
	defaultMaxCandidates        = 6
	defaultMinScore             = 6
	defaultAmbiguityGap         = 2
	defaultFarDistanceMeters    = 1000
	defaultPageSize             = 500
	defaultBatchDelayMS         = 180
	defaultBatchState           = "NY"
	defaultBatchStatus          = "all"
	defaultPositiveTTLMinutes   = 12 * 60
	defaultNegativeTTLMinutes   = 10
	defaultResolverConcurrency  = 4
	defaultResolveTimeout       = 30
	defaultSnapshotBackend      = SnapshotFile
	defaultSnapshotVersion      = 5
	defaultSnapshotFile         = "resolved_places.json"
	defaultStoreFile            = "places.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Provider kinds.
const (
	ProviderGoogle  = "google"
	ProviderElastic = "elastic"
)

// Snapshot backends.
const (
	SnapshotFile = "file"
	SnapshotS3   = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
			CacheDir:  defaultCacheDir,
		},
		Provider: Provider{
			Kind:           defaultProviderKind,
			GoogleAPI:      defaultGoogleAPI,
			ElasticIndex:   defaultElasticIndex,
			TimeoutSeconds: defaultProviderTimeout,
			RetryDelayMS:   defaultRetryDelayMS,
			MaxAttempts:    defaultMaxAttempts,
		},
		Matching: Matching{
			RadiusMeters:         defaultRadiusMeters,
			FallbackRadiusMeters: defaultFallbackRadiusMeters,
			MaxCandidates:        defaultMaxCandidates,
			MinScore:             defaultMinScore,
			AmbiguityGap:         defaultAmbiguityGap,
			FarDistanceMeters:    defaultFarDistanceMeters,
		},
		Batch: Batch{
			PageSize: defaultPageSize,
			DelayMS:  defaultBatchDelayMS,
			State:    defaultBatchState,
			Status:   defaultBatchStatus,
		},
		Resolver: Resolver{
			PositiveTTLMinutes:    defaultPositiveTTLMinutes,
			NegativeTTLMinutes:    defaultNegativeTTLMinutes,
			Concurrency:           defaultResolverConcurrency,
			ResolveTimeoutSeconds: defaultResolveTimeout,
		},
		Snapshot: Snapshot{
			Backend: defaultSnapshotBackend,
			Version: defaultSnapshotVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
