package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

// Appends one daily score per platform, computed from verified (zero-flag) ratings in the trailing window. Platforms with no verified ratings are skipped rather than given a zero data point. Returns the scores written.
func (s *Scheduler) RunTrend(ctx context.Context) (map[models.Platform]int, error) {
	start := time.Now()
	now := s.Engine.Now()
	since := now.Add(-s.TrendWindow)
	written := map[models.Platform]int{}

	var firstErr error
	for _, p := range models.Platforms {
		pos, total, err := s.Engine.Ratings.VerifiedTally(ctx, p, since, now.Add(time.Nanosecond))
		if err != nil {
			s.Logger.Error("trend tally failed", "platform", p, "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("tallying %s: %w", p, err)
			}
			continue
		}
		if total == 0 {
			s.Logger.Info("no verified ratings, skipping trend point", "platform", p)
			continue
		}
		score := dailyScore(pos, total)
		if err := s.Engine.Ratings.PushTrend(ctx, p, score, now); err != nil {
			s.Logger.Error("trend update failed", "platform", p, "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("updating %s trend: %w", p, err)
			}
			continue
		}
		s.Engine.PurgeAggregateCache(ctx, p)
		written[p] = score
		s.Logger.Info("trend point appended", "platform", p, "score", score, "verified", total)
	}
	jobRunDuration.WithLabelValues("trend").Observe(time.Since(start).Seconds())
	if firstErr != nil {
		jobErrorCount.WithLabelValues("trend").Inc()
	}
	return written, firstErr
}

func dailyScore(positive, total int64) int {
	return int(math.Round(100 * float64(positive) / float64(total)))
}
