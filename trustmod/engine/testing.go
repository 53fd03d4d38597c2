package engine

import (
	"log/slog"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/cachestore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/countstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/flagstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/store"

	"gorm.io/gorm"
)

var _ RatingRuleFunc = simpleRule

// flags ratings from the "bad-device" fingerprint
func simpleRule(c *RatingContext) error {
	if c.Rating.DeviceID == "bad-device" {
		c.AddFlag(models.FlagBurstActivity)
	}
	return nil
}

// Engine with in-memory counters, review queue and cache, over the provided database. Uses default config and a single simple rule.
func EngineTestFixture(db *gorm.DB) (*Engine, error) {
	return EngineTestFixtureWithRules(db, RuleSet{
		RatingRules: []RatingRuleFunc{
			simpleRule,
		},
	})
}

func EngineTestFixtureWithRules(db *gorm.DB, rules RuleSet) (*Engine, error) {
	ratings, err := store.New(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(
		DefaultConfig(),
		rules,
		ratings,
		countstore.NewMemCountStore(),
		flagstore.NewMemFlagStore(),
		cachestore.NewMemCacheStore(10, time.Hour),
		slog.Default(),
	)
}
