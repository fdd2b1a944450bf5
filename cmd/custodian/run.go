package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention/scheduler"
	"mercator-hq/custodian/pkg/retention/source"
	"mercator-hq/custodian/pkg/telemetry"
	"mercator-hq/custodian/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	once          bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the retention scheduler",
	Long: `Start the retention scheduler with the specified configuration.

On startup the policy definition directory is applied (and watched, when
policies.watch is set). The scheduler then runs every due policy on the
configured cron schedule. Metrics and health endpoints are served on the
server listen address.

Examples:
  # Start with default config
  custodian run

  # Start with custom config
  custodian run --config /etc/custodian/config.yaml

  # Run a single tick and exit, e.g. from an external cron job
  custodian run --once

  # Validate config without starting
  custodian run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override metrics and health listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.once, "once", false, "run one scheduler tick and exit")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("config", err.Error())
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	tel, err := telemetry.New(&cfg.Telemetry, versionInfo())
	if err != nil {
		return cli.NewConfigError("telemetry", err.Error())
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	printBanner(cmd, cfg)

	a, err := openApp(cmd.Context(), cfg, appOptions{metrics: tel.Metrics(), tracer: tel.Tracer()})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()
	fmt.Fprintf(out, "✓ Policy repository opened (%s)\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "✓ Record store opened (%s)\n", cfg.Datastore.Type)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Apply policy definition files
	if cfg.Policies.Dir != "" {
		syncer := source.NewSyncer(nil, a.engine)
		report, err := syncer.SyncDir(ctx, cfg.Policies.Dir)
		if err != nil {
			slog.Warn("some policy definitions were not applied", "dir", cfg.Policies.Dir, "error", err)
		}
		fmt.Fprintf(out, "✓ Policy definitions applied (%d created, %d updated, %d unchanged, %d failed)\n",
			len(report.Created), len(report.Updated), len(report.Unchanged), len(report.Failed))

		if cfg.Policies.Watch && !runFlags.once {
			watcher, err := source.NewWatcher(source.WatcherConfig{
				Dir:        cfg.Policies.Dir,
				Debounce:   cfg.Policies.Debounce,
				SkipHidden: true,
			})
			if err != nil {
				return cli.NewCommandError("run", err)
			}
			defer watcher.Stop()

			go func() {
				err := watcher.Watch(ctx, func(ctx context.Context) error {
					_, err := syncer.SyncDir(ctx, cfg.Policies.Dir)
					return err
				})
				if err != nil {
					slog.Error("policy definition watcher stopped", "error", err)
				}
			}()
			fmt.Fprintf(out, "✓ Watching %s for changes\n", cfg.Policies.Dir)
		}
	}

	sched := scheduler.New(a.engine, scheduler.ConfigFrom(cfg))

	if runFlags.once {
		results, err := sched.RunOnce(ctx)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return render(out, tickList(results))
	}

	checker := tel.Health()
	a.registerHealthChecks(checker)

	if cfg.Scheduler.IsEnabled() {
		if err := sched.Start(ctx); err != nil {
			return cli.NewConfigError("scheduler.schedule", err.Error())
		}
		defer sched.Stop()

		if period := sched.Period(); period > 0 {
			maxAge := 2*period + cfg.Scheduler.TickTimeout
			checker.RegisterCheck("scheduler", health.StalenessCheck(sched.LastTick, maxAge, maxAge))
		}
		if next := sched.NextRun(); next != nil {
			fmt.Fprintf(out, "✓ Scheduler started (%s, next tick %s)\n", cfg.Scheduler.Schedule, next.Format(time.RFC3339))
		}
	} else {
		slog.Warn("scheduler disabled; policies run only when executed manually")
	}

	// Serve metrics and health endpoints
	errChan := make(chan error, 1)
	var srv *http.Server
	if handler := tel.Handler(); handler != nil && cfg.Server.ListenAddress != "" {
		ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to listen on %s: %w", cfg.Server.ListenAddress, err))
		}
		srv = &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			slog.Info("starting HTTP server", "address", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("server error: %w", err)
			}
		}()

		fmt.Fprintln(out)
		fmt.Fprintf(out, "✓ Listening on %s\n", ln.Addr())
		if cfg.Telemetry.Health.Enabled {
			fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", ln.Addr(), cfg.Telemetry.Health.ReadinessPath)
		}
		if cfg.Telemetry.Metrics.Enabled {
			fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", ln.Addr(), cfg.Telemetry.Metrics.Path)
		}
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-ctx.Done():
		if sig := cli.ShutdownSignal(ctx); sig != nil {
			fmt.Fprintf(out, "\nReceived signal %s, shutting down gracefully...\n", sig)
		} else {
			fmt.Fprintln(out, "\nShutting down gracefully...")
		}
	}
	cancel()

	// Let a running tick finish before the stores close
	sched.Stop()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}
	}

	fmt.Fprintln(out, "✓ Custodian stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Custodian v%s\n", Version)
	if cmd.Flags().Changed("config") {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("engine settings",
		"auto_dispose", cfg.Engine.AutoDisposeEnabled(),
		"execution_timeout", cfg.Engine.ExecutionTimeout,
		"max_concurrency", cfg.Scheduler.MaxConcurrency,
	)
	if cfg.Governance.Enabled {
		slog.Debug("governance sync enabled", "base_url", cfg.Governance.BaseURL)
	}
}
