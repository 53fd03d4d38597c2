package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/internal/ticker"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"

	"golang.org/x/sync/errgroup"
)

const (
	JobTrend     = "trend"
	JobRetention = "retention"
)

// Runs the periodic maintenance jobs against an engine's stores: the daily trend append, and the weekly rate-limit counter purge.
//
// Last-run times are kept in the database, so a restart neither skips a due job nor repeats one which already ran.
type Scheduler struct {
	Engine *engine.Engine
	Logger *slog.Logger

	// how often to check whether a job is due
	CheckInterval     time.Duration
	TrendInterval     time.Duration
	TrendWindow       time.Duration
	RetentionInterval time.Duration
	// counters for days older than this are purged
	RetentionMaxAge time.Duration
	// max counter rows deleted per retention run
	RetentionBatch int
}

func NewScheduler(eng *engine.Engine, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Engine:            eng,
		Logger:            logger.With("system", "jobs"),
		CheckInterval:     time.Minute,
		TrendInterval:     24 * time.Hour,
		TrendWindow:       24 * time.Hour,
		RetentionInterval: 7 * 24 * time.Hour,
		RetentionMaxAge:   7 * 24 * time.Hour,
		RetentionBatch:    500,
	}
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobTrend, s.TrendInterval, func(ctx context.Context) error {
			_, err := s.RunTrend(ctx)
			return err
		}},
		{JobRetention, s.RetentionInterval, func(ctx context.Context) error {
			_, err := s.RunRetention(ctx)
			return err
		}},
	}
}

// Blocks until ctx is done. Due jobs run right away, then every CheckInterval. Each job runs on its own loop, so a job never overlaps with itself.
func (s *Scheduler) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs() {
		check := func(ctx context.Context) error {
			_, err := s.RunIfDue(ctx, j.name, j.interval, j.run)
			return err
		}
		eg.Go(func() error {
			if err := check(ctx); err != nil {
				s.Logger.Error("scheduled job failed", "job", j.name, "err", err)
			}
			return ticker.Periodically(ctx, s.Logger, s.CheckInterval, check)
		})
	}
	return eg.Wait()
}

// Runs the job if at least interval has passed since its last recorded run. The run is claimed before it starts: a failed run waits for the next interval rather than repeating work it already did.
func (s *Scheduler) RunIfDue(ctx context.Context, name string, interval time.Duration, run func(ctx context.Context) error) (bool, error) {
	now := s.Engine.Now()
	claimed, err := s.Engine.Ratings.ClaimJobRun(ctx, name, now.Add(-interval), now)
	if err != nil {
		return false, fmt.Errorf("claiming %s run: %w", name, err)
	}
	if !claimed {
		return false, nil
	}
	s.Logger.Info("running scheduled job", "job", name)
	return true, run(ctx)
}

// Records a hand-triggered run, so the schedule doesn't repeat it.
func (s *Scheduler) MarkRun(ctx context.Context, name string) error {
	return s.Engine.Ratings.RecordJobRun(ctx, name, s.Engine.Now())
}
