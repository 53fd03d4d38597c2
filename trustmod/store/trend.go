package store

import (
	"context"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counts of verified (zero-flag) ratings for a platform in [since, until).
func (s *Store) VerifiedTally(ctx context.Context, platform models.Platform, since, until time.Time) (positive, total int64, err error) {
	type row struct {
		Polarity models.Polarity
		N        int64
	}
	var rows []row
	err = s.DB.WithContext(ctx).Model(&models.Rating{}).
		Select("polarity, count(*) AS n").
		Where("platform = ? AND verified = ? AND created_at >= ? AND created_at < ?", platform, true, since.UTC(), until.UTC()).
		Group("polarity").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		total += r.N
		if r.Polarity == models.PolarityPositive {
			positive += r.N
		}
	}
	return positive, total, nil
}

// Appends a daily score to the platform's trend, under a row lock.
func (s *Store) PushTrend(ctx context.Context, platform models.Platform, score int, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAggregate(tx, platform, now); err != nil {
			return err
		}
		var agg models.PlatformAggregate
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("platform = ?", platform).
			First(&agg).Error
		if err != nil {
			return err
		}
		agg.PushTrend(score)
		// struct update, so the trend goes through the field's JSON serializer
		return tx.Model(&agg).
			Select("trend", "updated_at").
			Updates(models.PlatformAggregate{Trend: agg.Trend, UpdatedAt: now.UTC()}).Error
	})
}
