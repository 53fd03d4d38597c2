package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Adds a single weighted rating to the platform's running totals, as its own transaction.
func (s *Store) Apply(ctx context.Context, platform models.Platform, polarity models.Polarity, weight float64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyAggregate(tx, platform, polarity, weight, time.Now())
	})
}

// inserts a zero aggregate row if the platform doesn't have one yet
func ensureAggregate(tx *gorm.DB, platform models.Platform, now time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PlatformAggregate{
		Platform:  platform,
		Trend:     []int{},
		UpdatedAt: now.UTC(),
	}).Error
}

// Increments are SQL expressions evaluated against the current row, so concurrent applies commute.
func applyAggregate(tx *gorm.DB, platform models.Platform, polarity models.Polarity, weight float64, now time.Time) error {
	if err := ensureAggregate(tx, platform, now); err != nil {
		return err
	}
	updates := map[string]any{
		"total_ratings":  gorm.Expr("total_ratings + 1"),
		"weighted_total": gorm.Expr("weighted_total + ?", weight),
		"updated_at":     now.UTC(),
	}
	switch polarity {
	case models.PolarityPositive:
		updates["positive_count"] = gorm.Expr("positive_count + 1")
		updates["weighted_positive"] = gorm.Expr("weighted_positive + ?", weight)
	case models.PolarityNegative:
		updates["negative_count"] = gorm.Expr("negative_count + 1")
	default:
		return fmt.Errorf("unknown polarity: %q", polarity)
	}
	return tx.Model(&models.PlatformAggregate{}).Where("platform = ?", platform).Updates(updates).Error
}

// Returns the platform's aggregate, or a zero value if nothing has been recorded for it.
func (s *Store) GetAggregate(ctx context.Context, platform models.Platform) (*models.PlatformAggregate, error) {
	var agg models.PlatformAggregate
	err := s.DB.WithContext(ctx).Where("platform = ?", platform).Limit(1).Find(&agg).Error
	if err != nil {
		return nil, err
	}
	if agg.Platform == "" {
		agg = models.PlatformAggregate{Platform: platform}
	}
	if agg.Trend == nil {
		agg.Trend = []int{}
	}
	return &agg, nil
}

func (s *Store) ListAggregates(ctx context.Context) ([]models.PlatformAggregate, error) {
	out := make([]models.PlatformAggregate, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		agg, err := s.GetAggregate(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, *agg)
	}
	return out, nil
}
