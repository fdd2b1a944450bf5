package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/datastore"
	"mercator-hq/custodian/pkg/retention/engine"
	"mercator-hq/custodian/pkg/retention/governance"
	"mercator-hq/custodian/pkg/retention/storage"
	"mercator-hq/custodian/pkg/secrets"
	"mercator-hq/custodian/pkg/telemetry/health"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// loadConfig loads the --config file with environment overrides. The
// default path is optional: without an explicit --config and without a
// config.yaml in the working directory, built-in defaults are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	return cfg, nil
}

// setupCommandLogging installs a console logger on stderr for one-shot
// commands. Only warnings are shown unless --verbose is set.
func setupCommandLogging(cmd *cobra.Command, cfg *config.Config) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:          level,
		Format:         string(logging.FormatConsole),
		RedactPII:      cfg.Telemetry.Logging.RedactEnabled(),
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()
	return nil
}

// app holds the collaborators every command works with.
type app struct {
	cfg    *config.Config
	repo   retention.Repository
	store  retention.DataStore
	engine *engine.Engine

	// records is set when the record store is SQLite.
	records *datastore.SQLiteStore

	closers []func() error
}

type appOptions struct {
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// openApp opens the configured repository and record store and builds the
// engine on top of them.
func openApp(ctx context.Context, cfg *config.Config, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.repo, err = openRepository(cfg)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, a.repo.Close)

	switch cfg.Datastore.Type {
	case "memory":
		a.store = datastore.NewMemory()
	case "sqlite":
		a.records, err = datastore.NewSQLiteStoreWithConfig(datastore.SQLiteConfig{
			Path:               cfg.Datastore.Path,
			CheckpointInterval: cfg.Datastore.CheckpointInterval,
			BusyTimeout:        cfg.Datastore.BusyTimeout,
		})
		if err != nil {
			return a, fmt.Errorf("failed to open record store: %w", err)
		}
		a.store = a.records
		a.closers = append(a.closers, a.records.Close)
	default:
		return a, cli.NewConfigError("datastore.type", fmt.Sprintf("unsupported record store %q", cfg.Datastore.Type))
	}

	var gov retention.GovernanceSync
	if cfg.Governance.Enabled {
		apiKey := cfg.Governance.APIKey
		if secrets.HasReference(apiKey) {
			sm, err := newSecretManager(cfg)
			if err != nil {
				return a, err
			}
			if apiKey, err = sm.Resolve(ctx, apiKey); err != nil {
				return a, cli.NewConfigError("governance.api_key", err.Error())
			}
		}
		gov, err = governance.NewClient(governance.Config{
			BaseURL:    cfg.Governance.BaseURL,
			APIKey:     apiKey,
			MaxRetries: cfg.Governance.MaxRetries,
		})
		if err != nil {
			return a, cli.NewConfigError("governance", err.Error())
		}
	}

	a.engine, err = engine.New(engine.ConfigFrom(cfg), engine.Dependencies{
		Repository: a.repo,
		DataStore:  a.store,
		Governance: gov,
		Metrics:    opts.metrics,
		Tracer:     opts.tracer,
	})
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, a.engine.Close)

	return a, nil
}

// newSecretManager builds the secret providers: the secrets directory
// first when configured, then the environment.
func newSecretManager(cfg *config.Config) (*secrets.Manager, error) {
	var providers []secrets.Provider
	if cfg.Secrets.Dir != "" {
		fp, err := secrets.NewFileProvider(cfg.Secrets.Dir)
		if err != nil {
			return nil, cli.NewConfigError("secrets.dir", err.Error())
		}
		providers = append(providers, fp)
	}
	providers = append(providers, secrets.NewEnvProvider(cfg.Secrets.EnvPrefix))
	return secrets.NewManager(cfg.Secrets.CacheTTL, providers...), nil
}

func openRepository(cfg *config.Config) (retention.Repository, error) {
	switch cfg.Storage.Backend {
	case "memory":
		slog.Warn("using in-memory policy repository; policies are lost on exit")
		return storage.NewMemoryRepository(), nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(&storage.SQLiteConfig{
			Path:         cfg.Storage.SQLite.Path,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
			WALMode:      cfg.Storage.SQLite.WALMode == nil || *cfg.Storage.SQLite.WALMode,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open policy repository: %w", err)
		}
		return repo, nil
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend))
	}
}

// registerHealthChecks adds a readiness check for every collaborator that
// can be pinged.
func (a *app) registerHealthChecks(checker *health.Checker) {
	if p, ok := a.repo.(health.Pinger); ok {
		checker.RegisterCheck("repository", health.PingCheck(p))
	}
	if p, ok := a.store.(health.Pinger); ok {
		checker.RegisterCheck("datastore", health.PingCheck(p))
	}
}

// Close releases collaborators in reverse order of opening, so the engine
// finishes its background work before the stores go away.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupCommandLogging(cmd, cfg); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return cli.NewCommandError(cmd.CommandPath(), err)
	}

	runErr := fn(a)
	if closeErr := a.Close(); closeErr != nil && runErr == nil {
		runErr = cli.NewCommandError(cmd.CommandPath(), closeErr)
	}
	return runErr
}

// render prints data in the --format chosen by the user.
func render(w io.Writer, data any) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(w, data)
}

// renderResult prints an engine result. A failed execution becomes a
// command error and a refusal a RefusedError, so each exits with its own
// status.
func renderResult(cmd *cobra.Command, op string, res *engine.Result) error {
	if err := render(cmd.OutOrStdout(), resultView{res}); err != nil {
		return err
	}
	if res.Success {
		return nil
	}
	if res.Execution != nil && res.Execution.Status == retention.ExecutionFailed {
		return cli.NewCommandError(cmd.CommandPath(), errors.New(res.Execution.Error))
	}
	return cli.NewRefusedError(op, res.Message)
}
