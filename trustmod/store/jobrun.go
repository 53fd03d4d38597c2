package store

import (
	"context"
	"errors"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// placeholder last-run time for jobs which never ran
var neverRun = time.Unix(0, 0).UTC()

// Moves the job's last run to now, but only if the previous run was at or before dueBefore (or never happened). Returns whether this caller claimed the run; concurrent callers can't both succeed.
func (s *Store) ClaimJobRun(ctx context.Context, name string, dueBefore, now time.Time) (bool, error) {
	claimed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.JobRun{Name: name, LastRunAt: neverRun}).Error
		if err != nil {
			return err
		}
		res := tx.Model(&models.JobRun{}).
			Where("name = ? AND last_run_at <= ?", name, dueBefore.UTC()).
			Update("last_run_at", now.UTC())
		if res.Error != nil {
			return res.Error
		}
		claimed = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// Unconditionally records a run, for jobs triggered by hand.
func (s *Store) RecordJobRun(ctx context.Context, name string, at time.Time) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_run_at"}),
	}).Create(&models.JobRun{Name: name, LastRunAt: at.UTC()}).Error
}

// Returns false if the job never ran.
func (s *Store) LastJobRun(ctx context.Context, name string) (time.Time, bool, error) {
	var row models.JobRun
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, err
	}
	if !row.LastRunAt.After(neverRun) {
		return time.Time{}, false, nil
	}
	return row.LastRunAt, true, nil
}
