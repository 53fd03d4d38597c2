package models

import (
	"time"
)

// Manual-review copy of a suspicious rating. Keyed by rating ID; created at most once.
type FlaggedRating struct {
	RatingID      string     `gorm:"column:rating_id;primarykey" json:"rating_id"`
	DeviceID      string     `gorm:"column:device_id;not null" json:"device_id"`
	Platform      Platform   `gorm:"column:platform;not null" json:"platform"`
	Polarity      Polarity   `gorm:"column:polarity;not null" json:"polarity"`
	DwellMillis   int64      `gorm:"column:dwell_ms" json:"dwell_ms"`
	MouseMovement bool       `gorm:"column:mouse_movement" json:"mouse_movement"`
	Touch         bool       `gorm:"column:touch" json:"touch"`
	TabVisible    bool       `gorm:"column:tab_visible" json:"tab_visible"`
	RatedAt       time.Time  `gorm:"column:rated_at" json:"rated_at"`
	Flags         string     `gorm:"column:flags" json:"flags"`
	TrustWeight   float64    `gorm:"column:trust_weight" json:"trust_weight"`
	Reviewed      bool       `gorm:"column:reviewed;not null;default:false;index" json:"reviewed"`
	CreatedAt     time.Time  `gorm:"column:created_at;index" json:"created_at"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

func (FlaggedRating) TableName() string {
	return "flagged_rating"
}

// Builds the review snapshot for a processed rating.
func NewFlaggedRating(r *Rating, flags []Flag, weight float64, now time.Time) FlaggedRating {
	return FlaggedRating{
		RatingID:      r.ID,
		DeviceID:      r.DeviceID,
		Platform:      r.Platform,
		Polarity:      r.Polarity,
		DwellMillis:   r.DwellMillis,
		MouseMovement: r.MouseMovement,
		Touch:         r.Touch,
		TabVisible:    r.TabVisible,
		RatedAt:       r.CreatedAt,
		Flags:         JoinFlags(flags),
		TrustWeight:   weight,
		Reviewed:      false,
		CreatedAt:     now,
	}
}
