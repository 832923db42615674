package submissions

import (
	"context"
	"time"

	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

const (
	DefaultRetention       = time.Hour
	DefaultCleanupInterval = time.Hour
)

// Sweeper soft-deletes submissions that outlived the retention window.
type Sweeper struct {
	Repo      Repo
	Retention time.Duration
	Interval  time.Duration
	Now       func() time.Time
}

// SweepOnce deactivates every active submission created before now-Retention.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	retention := s.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	n, err := s.Repo.DeactivateOlderThan(ctx, now.Add(-retention))
	if err != nil {
		telemetry.Error("submission.sweep_failed", map[string]any{"error": err.Error()})
		return 0, err
	}
	metrics.AddSwept(n)
	telemetry.Info("submission.sweep", map[string]any{
		"deactivated":     n,
		"retention_hours": retention.Hours(),
	})
	return n, nil
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
