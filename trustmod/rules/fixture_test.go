package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/internal/testutil"
	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)

func ruleFixture(t *testing.T) (*engine.Engine, *gorm.DB) {
	db := testutil.TestDB(t)
	eng, err := engine.EngineTestFixtureWithRules(db, DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	eng.Clock = func() time.Time { return fixtureNow }
	return eng, db
}

func cleanSubmission(device string, pol models.Polarity) engine.Submission {
	return engine.Submission{
		DeviceID:      device,
		Platform:      models.PlatformClaude,
		Polarity:      pol,
		DwellMillis:   3000,
		MouseMovement: true,
		TabVisible:    true,
	}
}

// inserts already-processed history for a device, spaced apart in time
func seedHistory(t *testing.T, eng *engine.Engine, device string, spacing time.Duration, pols ...models.Polarity) {
	ctx := context.Background()
	for i, pol := range pols {
		r := models.Rating{
			ID:        fmt.Sprintf("%s-seed-%d", device, i),
			DeviceID:  device,
			Platform:  models.PlatformGemini,
			Polarity:  pol,
			CreatedAt: fixtureNow.Add(-time.Duration(i+1) * spacing),
		}
		if err := eng.Ratings.InsertRating(ctx, &r); err != nil {
			t.Fatal(err)
		}
	}
}

func repeat(pol models.Polarity, n int) []models.Polarity {
	out := make([]models.Polarity, n)
	for i := range out {
		out[i] = pol
	}
	return out
}

func TestSuspiciousSubmission(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := ruleFixture(t)

	res, err := eng.ProcessRating(ctx, engine.Submission{
		DeviceID:      "device-d",
		Platform:      models.PlatformChatGPT,
		Polarity:      models.PolarityNegative,
		DwellMillis:   200,
		MouseMovement: false,
		Touch:         false,
		TabVisible:    false,
	})
	assert.NoError(err)
	assert.Equal([]models.Flag{models.FlagBackgroundTab, models.FlagNoInteraction, models.FlagTooFast}, res.Flags)
	assert.Equal(0.105, *res.TrustWeight)
	assert.False(res.Applied)
	assert.True(res.FlaggedForReview)

	agg, err := eng.Ratings.GetAggregate(ctx, models.PlatformChatGPT)
	assert.NoError(err)
	assert.Equal(int64(0), agg.TotalRatings)

	entry, err := eng.Flags.Get(ctx, res.Rating.ID)
	assert.NoError(err)
	assert.Equal("BACKGROUND_TAB,NO_INTERACTION,TOO_FAST", entry.Flags)
	assert.Equal(0.105, entry.TrustWeight)
	assert.False(entry.Reviewed)

	stored, err := eng.Ratings.GetRating(ctx, res.Rating.ID)
	assert.NoError(err)
	assert.Equal(0.105, *stored.TrustWeight)
	assert.Equal(3, stored.FlagCount)
}

func TestCleanSubmissionApplied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, db := ruleFixture(t)

	seed := models.PlatformAggregate{
		Platform:         models.PlatformClaude,
		TotalRatings:     10,
		PositiveCount:    6,
		NegativeCount:    4,
		WeightedPositive: 6.0,
		WeightedTotal:    10.0,
		Trend:            []int{},
		UpdatedAt:        fixtureNow,
	}
	assert.NoError(db.Create(&seed).Error)

	res, err := eng.ProcessRating(ctx, cleanSubmission("device-c", models.PolarityPositive))
	assert.NoError(err)
	assert.Empty(res.Flags)
	assert.Equal(1.0, *res.TrustWeight)
	assert.True(res.Applied)
	assert.False(res.FlaggedForReview)

	agg, err := eng.GetAggregate(ctx, models.PlatformClaude)
	assert.NoError(err)
	assert.Equal(int64(11), agg.TotalRatings)
	assert.Equal(int64(7), agg.PositiveCount)
	assert.Equal(int64(4), agg.NegativeCount)
	assert.Equal(11.0, agg.WeightedTotal)
	assert.Equal(7.0, agg.WeightedPositive)
}

func TestBurstActivity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := ruleFixture(t)

	// 8 recent + this one: under the threshold
	seedHistory(t, eng, "device-b1", 20*time.Second, repeat(models.PolarityPositive, 8)...)
	res, err := eng.ProcessRating(ctx, cleanSubmission("device-b1", models.PolarityNegative))
	assert.NoError(err)
	assert.Empty(res.Flags)

	// 9 recent + this one: at the threshold
	seedHistory(t, eng, "device-b2", 20*time.Second, repeat(models.PolarityPositive, 9)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-b2", models.PolarityNegative))
	assert.NoError(err)
	assert.Equal([]models.Flag{models.FlagBurstActivity}, res.Flags)
	assert.Equal(0.4, *res.TrustWeight)

	// well over the threshold, and the query cap doesn't matter
	seedHistory(t, eng, "device-b3", time.Second, repeat(models.PolarityPositive, 40)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-b3", models.PolarityNegative))
	assert.NoError(err)
	assert.Contains(res.Flags, models.FlagBurstActivity)

	// plenty of ratings, but outside the window
	seedHistory(t, eng, "device-b4", 10*time.Minute, repeat(models.PolarityPositive, 12)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-b4", models.PolarityNegative))
	assert.NoError(err)
	assert.Empty(res.Flags)
}

func TestUniformRatings(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := ruleFixture(t)

	// 18 history + this one is still below the window, even though every rating agrees
	seedHistory(t, eng, "device-u1", time.Hour, repeat(models.PolarityPositive, 18)...)
	res, err := eng.ProcessRating(ctx, cleanSubmission("device-u1", models.PolarityPositive))
	assert.NoError(err)
	assert.Empty(res.Flags)

	// 19 history + this one fills the window
	seedHistory(t, eng, "device-u2", time.Hour, repeat(models.PolarityPositive, 19)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-u2", models.PolarityPositive))
	assert.NoError(err)
	assert.Equal([]models.Flag{models.FlagUniformRatings}, res.Flags)
	assert.Equal(0.3, *res.TrustWeight)

	// always negative
	seedHistory(t, eng, "device-u3", time.Hour, repeat(models.PolarityNegative, 25)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-u3", models.PolarityNegative))
	assert.NoError(err)
	assert.Equal([]models.Flag{models.FlagUniformRatings}, res.Flags)

	// exactly one dissent in twenty is 0.95, which is not above the bound
	seedHistory(t, eng, "device-u4", time.Hour, repeat(models.PolarityPositive, 19)...)
	res, err = eng.ProcessRating(ctx, cleanSubmission("device-u4", models.PolarityNegative))
	assert.NoError(err)
	assert.Empty(res.Flags)
}

func TestPositiveFraction(t *testing.T) {
	assert := assert.New(t)

	_, ok := positiveFraction(repeat(models.PolarityPositive, 19), 20)
	assert.False(ok)

	hist := append(repeat(models.PolarityPositive, 10), repeat(models.PolarityNegative, 15)...)
	frac, ok := positiveFraction(hist, 20)
	assert.True(ok)
	assert.Equal(0.5, frac)
}
