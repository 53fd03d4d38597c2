package models

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformChatGPT  = Platform("chatgpt")
	PlatformClaude   = Platform("claude")
	PlatformGemini   = Platform("gemini")
	PlatformGrok     = Platform("grok")
	PlatformDeepSeek = Platform("deepseek")
)

// All known platforms, in leaderboard order.
var Platforms = []Platform{
	PlatformChatGPT,
	PlatformClaude,
	PlatformGemini,
	PlatformGrok,
	PlatformDeepSeek,
}

func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform: %q", raw)
}

type Polarity string

const (
	PolarityPositive = Polarity("positive")
	PolarityNegative = Polarity("negative")
)

func ParsePolarity(raw string) (Polarity, error) {
	switch Polarity(raw) {
	case PolarityPositive, PolarityNegative:
		return Polarity(raw), nil
	default:
		return "", fmt.Errorf("unknown polarity: %q", raw)
	}
}

// A single rating event, as submitted by a (untrusted) client.
//
// The derived fields (Flags, FlagCount, Verified, TrustWeight, ProcessedAt, ErrorMessage) are written exactly once, by the validation pipeline. Rows are never deleted.
type Rating struct {
	ID        string    `gorm:"column:id;primarykey"`
	DeviceID  string    `gorm:"column:device_id;not null;index:idx_rating_device_created,priority:1"`
	Platform  Platform  `gorm:"column:platform;not null;index:idx_rating_platform_created,priority:1"`
	Polarity  Polarity  `gorm:"column:polarity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_rating_device_created,priority:2;index:idx_rating_platform_created,priority:2"`

	// client-reported milliseconds between the response appearing and the rating click
	DwellMillis   int64 `gorm:"column:dwell_ms"`
	MouseMovement bool  `gorm:"column:mouse_movement"`
	Touch         bool  `gorm:"column:touch"`
	TabVisible    bool  `gorm:"column:tab_visible"`

	// comma-separated flag codes; see FlagList()
	Flags        string     `gorm:"column:flags"`
	FlagCount    int        `gorm:"column:flag_count"`
	Verified     bool       `gorm:"column:verified;default:false"`
	TrustWeight  *float64   `gorm:"column:trust_weight"`
	ProcessedAt  *time.Time `gorm:"column:processed_at"`
	ErrorMessage string     `gorm:"column:error_message"`
}

func (Rating) TableName() string {
	return "rating"
}

func (r *Rating) IsProcessed() bool {
	return r.ProcessedAt != nil
}

func (r *Rating) FlagList() []Flag {
	return ParseFlags(r.Flags)
}

// Rate-limit state: number of ratings accepted for a given counter name and device, on a single UTC calendar day.
type DeviceDailyCounter struct {
	Name      string    `gorm:"column:name;primarykey"`
	DeviceID  string    `gorm:"column:device_id;primarykey"`
	Day       string    `gorm:"column:day;primarykey;index"`
	Count     int       `gorm:"column:count;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (DeviceDailyCounter) TableName() string {
	return "device_daily_counter"
}

// Max number of daily scores retained in PlatformAggregate.Trend
const TrendLength = 7

// Running statistics for a single platform. Mutated only inside database transactions.
type PlatformAggregate struct {
	Platform         Platform  `gorm:"column:platform;primarykey"`
	TotalRatings     int64     `gorm:"column:total_ratings;not null;default:0"`
	PositiveCount    int64     `gorm:"column:positive_count;not null;default:0"`
	NegativeCount    int64     `gorm:"column:negative_count;not null;default:0"`
	WeightedPositive float64   `gorm:"column:weighted_positive;not null;default:0"`
	WeightedTotal    float64   `gorm:"column:weighted_total;not null;default:0"`
	Trend            []int     `gorm:"column:trend;type:text;serializer:json"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (PlatformAggregate) TableName() string {
	return "platform_aggregate"
}

// Appends a daily score, dropping from the front so that at most TrendLength entries remain.
func (a *PlatformAggregate) PushTrend(score int) {
	a.Trend = append(a.Trend, score)
	if len(a.Trend) > TrendLength {
		a.Trend = a.Trend[len(a.Trend)-TrendLength:]
	}
}

// Trust-weighted percentage of positive ratings, or zero if nothing has been aggregated.
func (a *PlatformAggregate) WeightedScore() float64 {
	if a.WeightedTotal <= 0 {
		return 0
	}
	return 100 * a.WeightedPositive / a.WeightedTotal
}

// Last time a scheduled maintenance job ran. Survives restarts, so jobs with long intervals still run on schedule.
type JobRun struct {
	Name      string    `gorm:"column:name;primarykey"`
	LastRunAt time.Time `gorm:"column:last_run_at;not null"`
}

func (JobRun) TableName() string {
	return "job_run"
}
