package jobs

import (
	"context"
	"time"
)

// Purges one capped batch of expired rate-limit counters. Any backlog is left for the next run.
func (s *Scheduler) RunRetention(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := s.Engine.Now().Add(-s.RetentionMaxAge)
	n, err := s.Engine.Counters.PurgeBefore(ctx, cutoff, s.RetentionBatch)
	jobRunDuration.WithLabelValues("retention").Observe(time.Since(start).Seconds())
	if err != nil {
		jobErrorCount.WithLabelValues("retention").Inc()
		return 0, err
	}
	retentionPurgedCount.Add(float64(n))
	if n >= s.RetentionBatch {
		s.Logger.Warn("retention batch full, backlog remains", "deleted", n, "batch", s.RetentionBatch)
	} else {
		s.Logger.Info("retention run complete", "deleted", n)
	}
	return n, nil
}
