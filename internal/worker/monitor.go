// Package worker runs background work beside the HTTP server. The only job
// today is the stale-submission monitor: a submission whose process died
// mid-pipeline stays in "processing" forever, and redeliveries of its token
// are answered as duplicates. The monitor surfaces those rows in the logs.
//
// The monitor only reads. Lifecycle state is written by the pipeline alone.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nyashahama/roi-audit-backend/internal/db"
)

// StaleLister is the narrow store method the monitor depends on.
// *store.Store satisfies it.
type StaleLister interface {
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]db.StaleSubmission, error)
}

// MonitorConfig holds tuning parameters for the Monitor. Zero fields take the
// values from DefaultMonitorConfig.
type MonitorConfig struct {
	// Interval is how often the database is checked. Default: 5m.
	Interval time.Duration

	// StaleAfter is how long a non-terminal submission may go without an
	// update before it is reported. Set this well above the webhook's request
	// timeout. Default: 15m.
	StaleAfter time.Duration

	// Limit caps how many rows one check logs. Default: 50.
	Limit int
}

// DefaultMonitorConfig returns production defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   5 * time.Minute,
		StaleAfter: 15 * time.Minute,
		Limit:      50,
	}
}

// Monitor periodically logs submissions stuck in pending or processing.
type Monitor struct {
	store  StaleLister
	cfg    MonitorConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewMonitor constructs a Monitor. Call Run to start it.
func NewMonitor(st StaleLister, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	return &Monitor{
		store:  st,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run checks once immediately and then on every Interval until ctx is
// cancelled. It always returns nil so it can sit in an errgroup beside the
// server without a failed check taking the process down.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("worker: stale monitor starting",
		"interval", m.cfg.Interval,
		"stale_after", m.cfg.StaleAfter,
	)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.CheckOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("worker: stale monitor stopped")
			return nil
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs a single check and returns how many stale submissions it
// found, or -1 when the query failed.
func (m *Monitor) CheckOnce(ctx context.Context) int {
	now := m.now()
	stale, err := m.store.ListStale(ctx, now.Add(-m.cfg.StaleAfter), m.cfg.Limit)
	if err != nil {
		m.logger.Error("worker: stale check failed", "error", err)
		return -1
	}
	if len(stale) == 0 {
		m.logger.Debug("worker: no stale submissions")
		return 0
	}

	for _, s := range stale {
		m.logger.Warn("worker: submission stuck before a terminal state",
			"submission_id", s.ID,
			"status", s.ProcessingStatus,
			"age", now.Sub(s.CreatedAt).Round(time.Second),
			"idle", now.Sub(s.UpdatedAt).Round(time.Second),
		)
	}
	m.logger.Warn("worker: stale submissions found",
		"count", len(stale),
		"truncated", len(stale) == m.cfg.Limit,
	)
	return len(stale)
}
