package flagstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormFlagStore struct {
	DB *gorm.DB
}

var _ FlagStore = (*GormFlagStore)(nil)

func NewGormFlagStore(db *gorm.DB) (*GormFlagStore, error) {
	if err := db.AutoMigrate(&models.FlaggedRating{}); err != nil {
		return nil, fmt.Errorf("migrating review table: %w", err)
	}
	return &GormFlagStore{DB: db}, nil
}

func (s *GormFlagStore) Add(ctx context.Context, entry models.FlaggedRating) (bool, error) {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormFlagStore) Get(ctx context.Context, ratingID string) (*models.FlaggedRating, error) {
	var entry models.FlaggedRating
	err := s.DB.WithContext(ctx).Where("rating_id = ?", ratingID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GormFlagStore) ListUnreviewed(ctx context.Context, since time.Time, limit int) ([]models.FlaggedRating, error) {
	var out []models.FlaggedRating
	err := s.DB.WithContext(ctx).
		Where("reviewed = ? AND created_at >= ?", false, since).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormFlagStore) MarkReviewed(ctx context.Context, ratingID string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.FlaggedRating{}).
		Where("rating_id = ?", ratingID).
		Updates(map[string]any{"reviewed": true, "reviewed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormFlagStore) CountUnreviewed(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.FlaggedRating{}).Where("reviewed = ?", false).Count(&n).Error
	return n, err
}
