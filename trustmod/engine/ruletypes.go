package engine

type RatingRuleFunc = func(c *RatingContext) error
