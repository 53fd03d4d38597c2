package engine

import (
	"context"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/countstore"
)

const rateLimitCounter = "device-ratings"

// Per-device daily submission gate, backed by the engine's counter store.
type RateLimiter struct {
	Counters countstore.CountStore
	Ceiling  int
	Now      func() time.Time
}

// Reserves one slot in the device's counter for the current UTC day. Returns false, without writing, once the ceiling is reached.
func (l *RateLimiter) CheckAndReserve(ctx context.Context, deviceID string) (bool, error) {
	day := countstore.DayBucket(l.Now())
	ok, err := l.Counters.IncrementBelow(ctx, rateLimitCounter, deviceID, day, l.Ceiling)
	if err != nil {
		return false, err
	}
	if !ok {
		rateLimitedCount.Inc()
	}
	return ok, nil
}

func (l *RateLimiter) Used(ctx context.Context, deviceID string) (int, error) {
	return l.Counters.GetCount(ctx, rateLimitCounter, deviceID, countstore.DayBucket(l.Now()))
}
