// Package retention purges idle sessions on a cron schedule so the store
// does not grow unbounded with abandoned conversations.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/store"
)

// Runner executes scheduled purges of idle sessions.
type Runner struct {
	cron   string
	period time.Duration
	dryRun bool
}

// New validates the retention configuration and builds a Runner. An empty
// cron defaults to daily at 02:00.
func New(cfg config.RetentionConfig) (*Runner, error) {
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}
	if cfg.Period == "" {
		return nil, fmt.Errorf("retention enabled but retention.period is empty")
	}
	period, err := time.ParseDuration(cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("invalid retention period %q: %w", cfg.Period, err)
	}
	if period <= 0 {
		return nil, fmt.Errorf("retention period must be positive, got %s", period)
	}
	return &Runner{cron: cronExpr, period: period, dryRun: cfg.DryRun}, nil
}

// Start launches the scheduler goroutine. It stops when ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	logger.Info("retention_enabled", "cron", r.cron, "period", r.period.String(), "dry_run", r.dryRun)
	go r.runScheduler(ctx)
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func (r *Runner) runScheduler(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(r.cron, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", r.cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := r.RunOnce(); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce purges every session whose UpdatedAt is older than the retention
// period. In dry-run mode candidates are logged but kept.
func (r *Runner) RunOnce() error {
	cutoff := time.Now().UTC().Add(-r.period)
	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	purged := 0
	for _, s := range sessions {
		if !s.UpdatedAt.Before(cutoff) {
			continue
		}
		if r.dryRun {
			logger.Info("retention_would_purge", "session", s.ID, "updated_at", s.UpdatedAt.Format(time.RFC3339))
			continue
		}
		if err := store.DeleteSession(s.ID); err != nil {
			logger.Error("retention_purge_failed", "session", s.ID, "error", err)
			continue
		}
		purged++
	}
	logger.Info("retention_run_complete", "examined", len(sessions), "purged", purged, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}
