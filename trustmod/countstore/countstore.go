package countstore

import (
	"context"
	"time"
)

// Counters are bucketed by UTC calendar day, formatted YYYY-MM-DD
type CountStore interface {
	GetCount(ctx context.Context, name, val, day string) (int, error)
	Increment(ctx context.Context, name, val, day string) error
	// Atomically increments the counter only if its current value is below ceiling. Returns whether the increment happened.
	IncrementBelow(ctx context.Context, name, val, day string, ceiling int) (bool, error)
	// Deletes up to limit counter buckets for days strictly before cutoff. Returns the number removed.
	PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

func DayBucket(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
