package engine

import (
	"fmt"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

// Thresholds and penalties for rating validation. Treated as immutable once an Engine is constructed.
type Config struct {
	// accepted ratings per device per UTC day
	DailyCeiling int

	BurstWindow    time.Duration
	BurstThreshold int

	// number of most recent ratings examined for one-sided voting
	UniformityWindow int
	UniformityUpper  float64
	UniformityLower  float64

	MinDwell time.Duration

	// multiplicative penalty per flag; flags not listed apply no penalty
	Penalties   map[models.Flag]float64
	WeightFloor float64

	// minimum trust weight for a rating to count toward its platform aggregate
	AggregateThreshold float64

	// a rating is queued for manual review if it has more than ReviewFlagCount flags, or weight below ReviewWeight
	ReviewFlagCount int
	ReviewWeight    float64
}

func DefaultConfig() Config {
	return Config{
		DailyCeiling:     50,
		BurstWindow:      5 * time.Minute,
		BurstThreshold:   10,
		UniformityWindow: 20,
		UniformityUpper:  0.95,
		UniformityLower:  0.05,
		MinDwell:         500 * time.Millisecond,
		Penalties: map[models.Flag]float64{
			models.FlagTooFast:        0.3,
			models.FlagNoInteraction:  0.5,
			models.FlagBackgroundTab:  0.7,
			models.FlagBurstActivity:  0.4,
			models.FlagUniformRatings: 0.3,
		},
		WeightFloor:        0.1,
		AggregateThreshold: 0.5,
		ReviewFlagCount:    1,
		ReviewWeight:       0.3,
	}
}

func (c Config) Validate() error {
	if c.DailyCeiling <= 0 {
		return fmt.Errorf("daily ceiling must be positive")
	}
	if c.BurstThreshold <= 0 || c.BurstWindow <= 0 {
		return fmt.Errorf("burst window and threshold must be positive")
	}
	if c.UniformityWindow <= 0 {
		return fmt.Errorf("uniformity window must be positive")
	}
	if c.WeightFloor <= 0 || c.WeightFloor > 1 {
		return fmt.Errorf("weight floor must be in (0,1]")
	}
	for f, p := range c.Penalties {
		if p <= 0 || p > 1 {
			return fmt.Errorf("penalty for %s must be in (0,1]", f)
		}
	}
	return nil
}

// Returns a copy with its own penalty map, so callers can't mutate a running engine's config.
func (c Config) clone() Config {
	out := c
	out.Penalties = make(map[models.Flag]float64, len(c.Penalties))
	for k, v := range c.Penalties {
		out.Penalties[k] = v
	}
	return out
}
