package rules

import (
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
)

func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{
		RatingRules: []engine.RatingRuleFunc{
			TooFastRule,
			NoInteractionRule,
			BackgroundTabRule,
			BurstActivityRule,
			UniformRatingsRule,
		},
	}
	return rules
}
