package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention/engine"
)

// Runner executes the policies due at a point in time. *engine.Engine
// implements it.
type Runner interface {
	RunScheduledPolicies(ctx context.Context, now time.Time) ([]engine.TickResult, error)
}

// Config configures the scheduler.
type Config struct {
	// Schedule is a standard 5-field cron expression or a descriptor such
	// as "@every 1m". Empty disables the scheduler.
	Schedule string

	// TickTimeout bounds a whole tick. Zero means no bound.
	TickTimeout time.Duration
}

// ConfigFrom extracts the scheduler settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Schedule:    cfg.Scheduler.Schedule,
		TickTimeout: cfg.Scheduler.TickTimeout,
	}
}

// Scheduler drives retention ticks on a cron schedule. A tick that is
// still running when the next one fires causes that one to be skipped.
type Scheduler struct {
	runner Runner
	config Config
	cron   *cron.Cron
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	running bool

	// stopCh is closed by Stop; watchDone is closed when the goroutine
	// watching Start's ctx exits.
	stopCh    chan struct{}
	watchDone chan struct{}

	// tickMu serializes ticks; lastMu guards lastTick so LastTick never
	// waits for a running tick.
	tickMu   sync.Mutex
	lastMu   sync.RWMutex
	lastTick time.Time
}

// New creates a scheduler for runner.
func New(runner Runner, cfg Config) *Scheduler {
	logger := slog.Default().With("component", "retention.scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	return &Scheduler{
		runner: runner,
		config: cfg,
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		now:    time.Now,
		logger: logger,
	}
}

// Start schedules ticks on the configured cron expression and returns.
// The scheduler stops when ctx is canceled or Stop is called.
//
// Common schedules:
//   - "*/5 * * * *" - every 5 minutes
//   - "0 * * * *"   - hourly
//   - "@every 30s"  - every 30 seconds
//
// If Schedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	if s.config.Schedule == "" {
		s.logger.Info("tick schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.tick(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule ticks: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.config.Schedule,
		"tick_timeout", s.config.TickTimeout,
	)

	stop, done := make(chan struct{}), make(chan struct{})
	s.stopCh, s.watchDone = stop, done
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()

	return nil
}

// tick runs one scheduled tick and logs its outcome.
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	results, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled tick failed", "error", err)
		return
	}

	var failed int
	for _, r := range results {
		if !r.Success {
			failed++
			s.logger.Warn("policy execution failed", "policy_id", r.PolicyID, "error", r.Error)
		}
	}
	if len(results) == 0 {
		s.logger.Debug("scheduled tick completed, no policies due")
		return
	}
	s.logger.Debug("scheduled tick completed", "policies", len(results), "failed", failed)
}

// RunOnce runs a single tick now, bounded by TickTimeout. Ticks never
// overlap: a concurrent RunOnce waits for the running one.
func (s *Scheduler) RunOnce(ctx context.Context) ([]engine.TickResult, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if s.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TickTimeout)
		defer cancel()
	}

	now := s.now()
	results, err := s.runner.RunScheduledPolicies(ctx, now)
	if err != nil {
		return nil, err
	}

	s.lastMu.Lock()
	s.lastTick = now
	s.lastMu.Unlock()
	return results, nil
}

// Stop stops the scheduler and waits for a running tick to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		for _, entry := range s.cron.Entries() {
			s.cron.Remove(entry.ID)
		}
		s.running = false
		close(s.stopCh)
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled tick, or nil when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}

// LastTick returns when the last successful tick started. The zero time
// means no tick has completed yet.
func (s *Scheduler) LastTick() time.Time {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	return s.lastTick
}

// Period returns the gap between the next two ticks of the schedule, or
// zero when the schedule is empty or invalid. Readiness checks use it to
// decide when the last tick is overdue.
func (s *Scheduler) Period() time.Duration {
	if s.config.Schedule == "" {
		return 0
	}
	sched, err := cron.ParseStandard(s.config.Schedule)
	if err != nil {
		return 0
	}
	first := sched.Next(s.now())
	return sched.Next(first).Sub(first)
}
