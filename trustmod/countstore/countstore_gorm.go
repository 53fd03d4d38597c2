package countstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counters persisted in the device_daily_counter table. Each row is one (name, val, day) bucket.
type GormCountStore struct {
	DB *gorm.DB
}

var _ CountStore = (*GormCountStore)(nil)

func NewGormCountStore(db *gorm.DB) (*GormCountStore, error) {
	if err := db.AutoMigrate(&models.DeviceDailyCounter{}); err != nil {
		return nil, fmt.Errorf("migrating counter table: %w", err)
	}
	return &GormCountStore{DB: db}, nil
}

func (s *GormCountStore) GetCount(ctx context.Context, name, val, day string) (int, error) {
	var row models.DeviceDailyCounter
	err := s.DB.WithContext(ctx).
		Where("name = ? AND device_id = ? AND day = ?", name, val, day).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// inserts a zero row if the bucket doesn't exist yet
func ensureBucket(tx *gorm.DB, name, val, day string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DeviceDailyCounter{
		Name:      name,
		DeviceID:  val,
		Day:       day,
		Count:     0,
		UpdatedAt: time.Now(),
	}).Error
}

func (s *GormCountStore) Increment(ctx context.Context, name, val, day string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBucket(tx, name, val, day); err != nil {
			return err
		}
		return tx.Model(&models.DeviceDailyCounter{}).
			Where("name = ? AND device_id = ? AND day = ?", name, val, day).
			Updates(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"updated_at": time.Now(),
			}).Error
	})
}

// The ceiling check and increment are a single conditional UPDATE, so two concurrent callers can never both pass at count == ceiling-1.
func (s *GormCountStore) IncrementBelow(ctx context.Context, name, val, day string, ceiling int) (bool, error) {
	accepted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBucket(tx, name, val, day); err != nil {
			return err
		}
		res := tx.Model(&models.DeviceDailyCounter{}).
			Where("name = ? AND device_id = ? AND day = ? AND count < ?", name, val, day, ceiling).
			Updates(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		accepted = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

func (s *GormCountStore) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var stale []models.DeviceDailyCounter
	err := s.DB.WithContext(ctx).
		Select("name", "device_id", "day").
		Where("day < ?", DayBucket(cutoff)).
		Order("day ASC").
		Limit(limit).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range stale {
			err := tx.Where("name = ? AND device_id = ? AND day = ?", row.Name, row.DeviceID, row.Day).
				Delete(&models.DeviceDailyCounter{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}
