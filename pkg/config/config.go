package config

import "time"

// Config is the root configuration structure for Custodian.
// It contains all configuration sections for the retention engine, the
// scheduler, persistence, collaborators, and telemetry.
type Config struct {
	// Engine contains disposition executor settings such as automatic
	// disposal and the per-execution timeout.
	Engine EngineConfig `yaml:"engine"`

	// Scheduler contains the periodic driver configuration.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Storage contains configuration for the policy and execution ledger
	// repository.
	Storage StorageConfig `yaml:"storage"`

	// Datastore contains configuration for the record store that holds the
	// data governed by retention policies.
	Datastore DatastoreConfig `yaml:"datastore"`

	// Governance contains configuration for mirroring policies into an
	// external data governance system.
	Governance GovernanceConfig `yaml:"governance"`

	// Secrets contains the providers used to resolve ${secret:name}
	// references in credentials.
	Secrets SecretsConfig `yaml:"secrets"`

	// Policies contains configuration for policy definition files.
	Policies PoliciesConfig `yaml:"policies"`

	// Server contains the HTTP listener used for metrics and health endpoints.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains disposition executor configuration.
type EngineConfig struct {
	// AutoDispose makes scheduled executions of policies that do not require
	// approval dispose records. When false, those executions are dry runs
	// unless forced.
	// Default: true
	AutoDispose *bool `yaml:"auto_dispose"`

	// ExecutionTimeout bounds a single DisposeRecords call. An execution that
	// exceeds it is recorded as failed.
	// Default: 5m
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`

	// HistoryLimit is the number of execution records returned by history
	// queries when the caller does not ask for a specific number.
	// Default: 20
	HistoryLimit int `yaml:"history_limit"`
}

// AutoDisposeEnabled reports the effective auto_dispose setting.
func (c EngineConfig) AutoDisposeEnabled() bool {
	if c.AutoDispose == nil {
		return DefaultEngineAutoDispose
	}
	return *c.AutoDispose
}

// SchedulerConfig contains configuration for the periodic scheduler.
type SchedulerConfig struct {
	// Enabled starts the scheduler with the run command.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Schedule is the cron expression for scheduler ticks.
	// Format: standard 5-field cron (minute hour day month weekday).
	// Default: "*/5 * * * *"
	Schedule string `yaml:"schedule"`

	// MaxConcurrency is the number of policies executed in parallel per tick.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// TickTimeout bounds a whole tick. Zero means no bound.
	// Default: 30m
	TickTimeout time.Duration `yaml:"tick_timeout"`
}

// IsEnabled reports the effective enabled setting.
func (c SchedulerConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return DefaultSchedulerEnabled
	}
	return *c.Enabled
}

// StorageConfig contains policy repository configuration.
type StorageConfig struct {
	// Backend selects the repository implementation.
	// Valid values: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite repository configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/policies.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DatastoreConfig contains record store configuration.
type DatastoreConfig struct {
	// Type selects the record store.
	// Valid values: "memory", "sqlite"
	// Default: "sqlite"
	Type string `yaml:"type"`

	// Path is the SQLite records database path.
	// Default: "data/records.db"
	Path string `yaml:"path"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`

	// BusyTimeout is how long a write waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// GovernanceConfig contains governance sync configuration.
type GovernanceConfig struct {
	// Enabled turns on mirroring of newly created policies.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// BaseURL is the governance API root.
	// Required when enabled.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token. It may be a ${secret:name}
	// reference, resolved through the secrets providers.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one sync, including retries.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// SecretsConfig contains secret provider configuration.
type SecretsConfig struct {
	// EnvPrefix is prepended to environment variable names derived from
	// secret names.
	// Default: "CUSTODIAN_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is a directory holding one file per secret. It is consulted
	// before the environment. Empty disables file secrets.
	Dir string `yaml:"dir"`

	// CacheTTL is how long resolved values are reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// PoliciesConfig contains policy definition file configuration.
type PoliciesConfig struct {
	// Dir is a directory of *.yaml policy definition files applied at
	// startup. Empty disables definition files.
	Dir string `yaml:"dir"`

	// Watch reapplies definitions when files in Dir change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file change before reloading.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig contains the HTTP listener configuration.
type ServerConfig struct {
	// ListenAddress is the address for metrics and health endpoints.
	// Format: "host:port". Empty disables the listener.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the graceful shutdown deadline.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Valid values: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks e-mail addresses and credentials in log fields.
	// Approver and hold owner identities are usually e-mail addresses.
	// Default: true
	RedactPII *bool `yaml:"redact_pii"`

	// BufferSize is the async log buffer size.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns are additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactEnabled reports the effective redact_pii setting.
func (c LoggingConfig) RedactEnabled() bool {
	if c.RedactPII == nil {
		return DefaultLoggingRedactPII
	}
	return *c.RedactPII
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "custodian"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "retention"
	Subsystem string `yaml:"subsystem"`

	// ExecutionDurationBuckets are histogram buckets for execution duration
	// in seconds.
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300]
	ExecutionDurationBuckets []float64 `yaml:"execution_duration_buckets"`

	// RecordCountBuckets are histogram buckets for records processed per
	// execution.
	// Default: [0, 1, 10, 100, 1000, 10000, 100000, 1000000]
	RecordCountBuckets []float64 `yaml:"record_count_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled turns on OpenTelemetry tracing.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler selects the sampling strategy.
	// Valid values: "always", "never", "ratio", "parent_based"
	// Default: "parent_based"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the ratio for the "ratio" and "parent_based" samplers.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the span exporter.
	// Valid values: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "custodian"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled exposes liveness and readiness endpoints.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness endpoint path.
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness endpoint path.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version endpoint path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
