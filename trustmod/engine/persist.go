package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/cachestore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/countstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/store"

	"github.com/cenkalti/backoff/v5"
)

const (
	flagCounter    = "flag"
	aggregateCache = "aggregate"
	allPlatformKey = "all"
)

// Writes the rating's derived fields (and aggregate contribution) in one transaction, retrying transient failures with exponential backoff.
func (eng *Engine) commit(ctx context.Context, r *models.Rating, out store.Outcome) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = time.Second

	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		err := eng.Ratings.Finalize(ctx, r, out)
		if errors.Is(err, store.ErrAlreadyProcessed) || errors.Is(err, store.ErrRatingNotFound) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			eng.Logger.Warn("rating commit attempt failed", "rating", r.ID, "attempt", tries, "err", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(eng.CommitMaxTries))
	if tries > 1 {
		commitRetryCount.Add(float64(tries - 1))
	}
	return err
}

// Counter failures are logged, never returned: the rating outcome is already committed.
func (eng *Engine) persistCounters(ctx context.Context, eff *Effects) {
	day := countstore.DayBucket(eng.now())
	for _, ref := range eff.CounterIncrements {
		if err := eng.Counters.Increment(ctx, ref.Name, ref.Val, day); err != nil {
			eng.Logger.Error("failed to increment counter", "name", ref.Name, "val", ref.Val, "err", err)
		}
	}
}

func (eng *Engine) PurgeAggregateCache(ctx context.Context, platform models.Platform) {
	for _, key := range []string{string(platform), allPlatformKey} {
		if err := eng.Cache.Purge(ctx, aggregateCache, key); err != nil {
			eng.Logger.Error("failed to purge aggregate cache", "key", key, "err", err)
		}
	}
}

// Committed aggregate snapshot for a platform, served through the cache.
func (eng *Engine) GetAggregate(ctx context.Context, platform models.Platform) (*models.PlatformAggregate, error) {
	agg, err := cachestore.Fetch(ctx, eng.Cache, aggregateCache, string(platform), func(ctx context.Context) (models.PlatformAggregate, error) {
		a, err := eng.Ratings.GetAggregate(ctx, platform)
		if err != nil {
			return models.PlatformAggregate{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (eng *Engine) ListAggregates(ctx context.Context) ([]models.PlatformAggregate, error) {
	return cachestore.Fetch(ctx, eng.Cache, aggregateCache, allPlatformKey, eng.Ratings.ListAggregates)
}

type Stats struct {
	Day            string              `json:"day"`
	FlagCounts     map[models.Flag]int `json:"flag_counts"`
	PendingReviews int64               `json:"pending_reviews"`
}

// Today's per-flag tallies and the size of the review backlog.
func (eng *Engine) Stats(ctx context.Context) (*Stats, error) {
	day := countstore.DayBucket(eng.now())
	st := Stats{
		Day:        day,
		FlagCounts: map[models.Flag]int{},
	}
	for _, f := range []models.Flag{
		models.FlagTooFast,
		models.FlagNoInteraction,
		models.FlagBackgroundTab,
		models.FlagBurstActivity,
		models.FlagUniformRatings,
		models.FlagRateLimited,
		models.FlagProcessingError,
	} {
		n, err := eng.Counters.GetCount(ctx, flagCounter, string(f), day)
		if err != nil {
			return nil, err
		}
		st.FlagCounts[f] = n
	}
	n, err := eng.Flags.CountUnreviewed(ctx)
	if err != nil {
		return nil, err
	}
	st.PendingReviews = n
	return &st, nil
}
