package engine

import (
	"context"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/flagstore"
)

// Routes suspicious ratings to the manual-review queue. Advisory only; never changes whether a rating is aggregated.
type ReviewFlagger struct {
	Flags        flagstore.FlagStore
	MinFlagCount int
	MinWeight    float64
}

// A rating is queued when it has more than MinFlagCount distinct flags, or a known weight below MinWeight.
func (f *ReviewFlagger) ShouldReview(flags []models.Flag, weight *float64) bool {
	if len(models.NormalizeFlags(flags)) > f.MinFlagCount {
		return true
	}
	return weight != nil && *weight < f.MinWeight
}

// Idempotent by rating ID. Returns true if a new review entry was created.
func (f *ReviewFlagger) Flag(ctx context.Context, r *models.Rating, flags []models.Flag, weight float64, now time.Time) (bool, error) {
	entry := models.NewFlaggedRating(r, flags, weight, now.UTC())
	created, err := f.Flags.Add(ctx, entry)
	if err != nil {
		return false, err
	}
	if created {
		reviewQueuedCount.Inc()
	}
	return created, nil
}
