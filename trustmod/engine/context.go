package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

// The interface exposed to rating rules.
type RatingContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct get rolled up in this nullable field
	Err error
	// slog logger handle, with rating-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	// The rating under evaluation. Already appended to the ledger, so history lookups include it.
	Rating models.Rating

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

func NewRatingContext(ctx context.Context, eng *Engine, r models.Rating) RatingContext {
	return RatingContext{
		Ctx:     ctx,
		Err:     nil,
		Logger:  eng.Logger.With("rating", r.ID, "device", r.DeviceID, "platform", r.Platform),
		Rating:  r,
		engine:  eng,
		effects: &Effects{},
	}
}

func (c *RatingContext) Config() Config {
	return c.engine.config
}

func (c *RatingContext) Now() time.Time {
	return c.engine.now()
}

// Number of ratings from this device in the trailing window, counting at most limit.
func (c *RatingContext) CountRecentRatings(window time.Duration, limit int) int {
	n, err := c.engine.Ratings.CountDeviceRatingsSince(c.Ctx, c.Rating.DeviceID, c.Now().Add(-window), limit)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return n
}

// Polarities of the device's most recent ratings, newest first.
func (c *RatingContext) RecentPolarities(limit int) []models.Polarity {
	out, err := c.engine.Ratings.RecentDevicePolarities(c.Ctx, c.Rating.DeviceID, limit)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return nil
	}
	return out
}

func (c *RatingContext) AddFlag(f models.Flag) {
	c.effects.AddFlag(f)
}

func (c *RatingContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *RatingContext) Flags() []models.Flag {
	return models.NormalizeFlags(c.effects.Flags)
}
