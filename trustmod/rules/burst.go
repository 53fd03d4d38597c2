package rules

import (
	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
)

var _ engine.RatingRuleFunc = BurstActivityRule

// looks for devices submitting many ratings in a short trailing window.
//
// The history query is capped at threshold+1 rows; the exact count beyond the threshold isn't needed.
func BurstActivityRule(c *engine.RatingContext) error {
	cfg := c.Config()
	n := c.CountRecentRatings(cfg.BurstWindow, cfg.BurstThreshold+1)
	if n >= cfg.BurstThreshold {
		c.Logger.Info("burst-activity", "recent", n, "window", cfg.BurstWindow)
		c.AddFlag(models.FlagBurstActivity)
	}
	return nil
}
