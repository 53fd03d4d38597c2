package flagstore

import (
	"context"
	"errors"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

var ErrNotFound = errors.New("flagged rating not found")

// Manual-review queue of suspicious ratings, keyed by rating ID.
type FlagStore interface {
	// Inserts the entry unless one already exists for the rating. Returns true if a new entry was created.
	Add(ctx context.Context, entry models.FlaggedRating) (bool, error)
	Get(ctx context.Context, ratingID string) (*models.FlaggedRating, error)
	// Unreviewed entries created at or after since, oldest first.
	ListUnreviewed(ctx context.Context, since time.Time, limit int) ([]models.FlaggedRating, error)
	MarkReviewed(ctx context.Context, ratingID string, at time.Time) error
	CountUnreviewed(ctx context.Context) (int64, error)
}
