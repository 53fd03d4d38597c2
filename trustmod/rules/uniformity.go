package rules

import (
	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
)

var _ engine.RatingRuleFunc = UniformRatingsRule

// Fraction of positive ratings, and whether there were enough to judge. Expects newest-first history.
func positiveFraction(history []models.Polarity, window int) (float64, bool) {
	if len(history) < window {
		return 0, false
	}
	pos := 0
	for _, p := range history[:window] {
		if p == models.PolarityPositive {
			pos++
		}
	}
	return float64(pos) / float64(window), true
}

// looks for devices which always agree (or always disagree), regardless of content.
//
// Devices with fewer ratings than the window are never flagged.
func UniformRatingsRule(c *engine.RatingContext) error {
	cfg := c.Config()
	history := c.RecentPolarities(cfg.UniformityWindow)
	frac, ok := positiveFraction(history, cfg.UniformityWindow)
	if !ok {
		return nil
	}
	if frac > cfg.UniformityUpper || frac < cfg.UniformityLower {
		c.Logger.Info("uniform-ratings", "positive-fraction", frac, "window", cfg.UniformityWindow)
		c.AddFlag(models.FlagUniformRatings)
	}
	return nil
}
