package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
)

var (
	ErrRatingNotFound   = errors.New("rating not found")
	ErrAlreadyProcessed = errors.New("rating already processed")
)

// Ratings ledger and per-platform aggregates. All mutation of aggregates happens inside database transactions.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.Rating{}, &models.PlatformAggregate{}, &models.JobRun{}); err != nil {
		return nil, fmt.Errorf("migrating rating tables: %w", err)
	}
	return &Store{DB: db}, nil
}

// Appends a new (unprocessed) rating to the ledger. Any derived fields on r are cleared first.
func (s *Store) InsertRating(ctx context.Context, r *models.Rating) error {
	r.Flags = ""
	r.FlagCount = 0
	r.Verified = false
	r.TrustWeight = nil
	r.ProcessedAt = nil
	r.ErrorMessage = ""
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("inserting rating: %w", err)
	}
	return nil
}

func (s *Store) GetRating(ctx context.Context, id string) (*models.Rating, error) {
	var r models.Rating
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRatingNotFound
	} else if err != nil {
		return nil, err
	}
	return &r, nil
}

// Number of ratings from the device created at or after since, counting at most limit rows.
func (s *Store) CountDeviceRatingsSince(ctx context.Context, deviceID string, since time.Time, limit int) (int, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Rating{}).
		Where("device_id = ? AND created_at >= ?", deviceID, since.UTC()).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Polarities of the device's most recent ratings, newest first.
func (s *Store) RecentDevicePolarities(ctx context.Context, deviceID string, limit int) ([]models.Polarity, error) {
	var out []models.Polarity
	err := s.DB.WithContext(ctx).Model(&models.Rating{}).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("polarity", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Derived fields written once to a rating, plus whether its weight goes into the platform aggregate.
type Outcome struct {
	Flags        []models.Flag
	TrustWeight  *float64
	Apply        bool
	ErrorMessage string
	ProcessedAt  time.Time
}

// Writes the rating's derived fields and, if requested, its aggregate contribution, in a single transaction. Returns ErrAlreadyProcessed if the rating was finalized before.
func (s *Store) Finalize(ctx context.Context, r *models.Rating, out Outcome) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := finalizeRating(tx, r.ID, out); err != nil {
			return err
		}
		if out.Apply && out.TrustWeight != nil {
			return applyAggregate(tx, r.Platform, r.Polarity, *out.TrustWeight, out.ProcessedAt)
		}
		return nil
	})
}

func finalizeRating(tx *gorm.DB, id string, out Outcome) error {
	flags := models.NormalizeFlags(out.Flags)
	res := tx.Model(&models.Rating{}).
		Where("id = ? AND processed_at IS NULL", id).
		Updates(map[string]any{
			"flags":         models.JoinFlags(flags),
			"flag_count":    len(flags),
			"verified":      len(flags) == 0,
			"trust_weight":  out.TrustWeight,
			"processed_at":  out.ProcessedAt.UTC(),
			"error_message": out.ErrorMessage,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := tx.Model(&models.Rating{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrRatingNotFound
	}
	return ErrAlreadyProcessed
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
