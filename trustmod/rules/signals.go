package rules

import (
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
)

var (
	_ engine.RatingRuleFunc = TooFastRule
	_ engine.RatingRuleFunc = NoInteractionRule
	_ engine.RatingRuleFunc = BackgroundTabRule
)

// a human can't read a response and decide on it faster than the configured dwell floor
func TooFastRule(c *engine.RatingContext) error {
	dwell := time.Duration(c.Rating.DwellMillis) * time.Millisecond
	if dwell < c.Config().MinDwell {
		c.Logger.Debug("rating submitted too fast", "dwell", dwell)
		c.AddFlag(models.FlagTooFast)
	}
	return nil
}

// neither mouse nor touch activity was observed in the session
func NoInteractionRule(c *engine.RatingContext) error {
	if !c.Rating.MouseMovement && !c.Rating.Touch {
		c.AddFlag(models.FlagNoInteraction)
	}
	return nil
}

func BackgroundTabRule(c *engine.RatingContext) error {
	if !c.Rating.TabVisible {
		c.AddFlag(models.FlagBackgroundTab)
	}
	return nil
}
