package engine

// Holds configuration of which anomaly rules should be run, and dispatches ratings to them.
type RuleSet struct {
	RatingRules []RatingRuleFunc
}

// Executes all the rating rules in order. Only dispatches execution, does no other de-dupe or pre/post processing.
func (r *RuleSet) CallRatingRules(c *RatingContext) error {
	for _, f := range r.RatingRules {
		err := f(c)
		if err != nil {
			return err
		}
		if c.Err != nil {
			return c.Err
		}
	}
	return nil
}
