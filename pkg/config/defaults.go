package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineAutoDispose      = true
	DefaultEngineExecutionTimeout = 5 * time.Minute
	DefaultEngineHistoryLimit     = 20

	// Scheduler defaults
	DefaultSchedulerEnabled        = true
	DefaultSchedulerSchedule       = "*/5 * * * *"
	DefaultSchedulerMaxConcurrency = 4
	DefaultSchedulerTickTimeout    = 30 * time.Minute

	// Storage defaults
	DefaultStorageBackend            = "sqlite"
	DefaultStorageSQLitePath         = "data/policies.db"
	DefaultStorageSQLiteMaxOpenConns = 10
	DefaultStorageSQLiteMaxIdleConns = 5
	DefaultStorageSQLiteWALMode      = true
	DefaultStorageSQLiteBusyTimeout  = 5 * time.Second

	// Datastore defaults
	DefaultDatastoreType               = "sqlite"
	DefaultDatastorePath               = "data/records.db"
	DefaultDatastoreCheckpointInterval = 5 * time.Minute
	DefaultDatastoreBusyTimeout        = 5 * time.Second

	// Governance defaults
	DefaultGovernanceTimeout    = 30 * time.Second
	DefaultGovernanceMaxRetries = 2

	// Secrets defaults
	DefaultSecretsEnvPrefix = "CUSTODIAN_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute

	// Policy definition defaults
	DefaultPoliciesDebounce = 250 * time.Millisecond

	// Server defaults
	DefaultServerListenAddress   = "127.0.0.1:9090"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultLoggingRedactPII    = true
	DefaultLoggingBufferSize   = 10000
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "custodian"
	DefaultMetricsSubsystem    = "retention"
	DefaultTracingSampler      = "parent_based"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingExporter     = "otlp"
	DefaultTracingServiceName  = "custodian"
	DefaultTracingOTLPTimeout  = 10 * time.Second
	DefaultHealthLivenessPath  = "/healthz"
	DefaultHealthReadinessPath = "/readyz"
	DefaultHealthVersionPath   = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultExecutionDurationBuckets are histogram buckets in seconds.
var DefaultExecutionDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300}

// DefaultRecordCountBuckets are histogram buckets for records per execution.
var DefaultRecordCountBuckets = []float64{0, 1, 10, 100, 1000, 10000, 100000, 1000000}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.AutoDispose == nil {
		cfg.Engine.AutoDispose = boolPtr(DefaultEngineAutoDispose)
	}
	if cfg.Engine.ExecutionTimeout == 0 {
		cfg.Engine.ExecutionTimeout = DefaultEngineExecutionTimeout
	}
	if cfg.Engine.HistoryLimit == 0 {
		cfg.Engine.HistoryLimit = DefaultEngineHistoryLimit
	}

	// Scheduler defaults
	if cfg.Scheduler.Enabled == nil {
		cfg.Scheduler.Enabled = boolPtr(DefaultSchedulerEnabled)
	}
	if cfg.Scheduler.Schedule == "" {
		cfg.Scheduler.Schedule = DefaultSchedulerSchedule
	}
	if cfg.Scheduler.MaxConcurrency == 0 {
		cfg.Scheduler.MaxConcurrency = DefaultSchedulerMaxConcurrency
	}
	if cfg.Scheduler.TickTimeout == 0 {
		cfg.Scheduler.TickTimeout = DefaultSchedulerTickTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultStorageSQLitePath
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultStorageSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultStorageSQLiteMaxIdleConns
	}
	if cfg.Storage.SQLite.WALMode == nil {
		cfg.Storage.SQLite.WALMode = boolPtr(DefaultStorageSQLiteWALMode)
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultStorageSQLiteBusyTimeout
	}

	// Datastore defaults
	if cfg.Datastore.Type == "" {
		cfg.Datastore.Type = DefaultDatastoreType
	}
	if cfg.Datastore.Path == "" {
		cfg.Datastore.Path = DefaultDatastorePath
	}
	if cfg.Datastore.CheckpointInterval == 0 {
		cfg.Datastore.CheckpointInterval = DefaultDatastoreCheckpointInterval
	}
	if cfg.Datastore.BusyTimeout == 0 {
		cfg.Datastore.BusyTimeout = DefaultDatastoreBusyTimeout
	}

	// Governance defaults
	if cfg.Governance.Timeout == 0 {
		cfg.Governance.Timeout = DefaultGovernanceTimeout
	}
	if cfg.Governance.MaxRetries == 0 {
		cfg.Governance.MaxRetries = DefaultGovernanceMaxRetries
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}

	// Policy definition defaults
	if cfg.Policies.Debounce == 0 {
		cfg.Policies.Debounce = DefaultPoliciesDebounce
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.RedactPII == nil {
		t.Logging.RedactPII = boolPtr(DefaultLoggingRedactPII)
	}
	if t.Logging.BufferSize == 0 {
		t.Logging.BufferSize = DefaultLoggingBufferSize
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.ExecutionDurationBuckets) == 0 {
		t.Metrics.ExecutionDurationBuckets = append([]float64(nil), DefaultExecutionDurationBuckets...)
	}
	if len(t.Metrics.RecordCountBuckets) == 0 {
		t.Metrics.RecordCountBuckets = append([]float64(nil), DefaultRecordCountBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.Exporter == "" {
		t.Tracing.Exporter = DefaultTracingExporter
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultHealthVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// NewDefault returns a Config with every default applied. It is valid as is
// and runs against the SQLite files under data/.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func boolPtr(b bool) *bool {
	return &b
}
