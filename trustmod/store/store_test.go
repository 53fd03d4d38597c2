package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/internal/testutil"
	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"github.com/stretchr/testify/assert"
)

func testStore(t *testing.T) *Store {
	s, err := New(testutil.TestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func weight(w float64) *float64 {
	return &w
}

func TestFinalizeOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	r := models.Rating{
		ID:       "r1",
		DeviceID: "dev1",
		Platform: models.PlatformClaude,
		Polarity: models.PolarityPositive,
	}
	assert.NoError(s.InsertRating(ctx, &r))

	got, err := s.GetRating(ctx, "r1")
	assert.NoError(err)
	assert.False(got.IsProcessed())
	assert.Nil(got.TrustWeight)

	now := time.Now()
	err = s.Finalize(ctx, &r, Outcome{
		Flags:       []models.Flag{models.FlagTooFast},
		TrustWeight: weight(0.3),
		ProcessedAt: now,
	})
	assert.NoError(err)

	err = s.Finalize(ctx, &r, Outcome{TrustWeight: weight(1.0), ProcessedAt: now})
	assert.ErrorIs(err, ErrAlreadyProcessed)

	err = s.Finalize(ctx, &models.Rating{ID: "missing"}, Outcome{ProcessedAt: now})
	assert.ErrorIs(err, ErrRatingNotFound)

	got, err = s.GetRating(ctx, "r1")
	assert.NoError(err)
	assert.True(got.IsProcessed())
	assert.Equal("TOO_FAST", got.Flags)
	assert.Equal(1, got.FlagCount)
	assert.False(got.Verified)
	assert.Equal(0.3, *got.TrustWeight)

	_, err = s.GetRating(ctx, "nope")
	assert.ErrorIs(err, ErrRatingNotFound)
}

func TestFinalizeApplies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	r := models.Rating{ID: "r2", DeviceID: "dev1", Platform: models.PlatformGrok, Polarity: models.PolarityNegative}
	assert.NoError(s.InsertRating(ctx, &r))
	assert.NoError(s.Finalize(ctx, &r, Outcome{TrustWeight: weight(1.0), Apply: true, ProcessedAt: time.Now()}))

	agg, err := s.GetAggregate(ctx, models.PlatformGrok)
	assert.NoError(err)
	assert.Equal(int64(1), agg.TotalRatings)
	assert.Equal(int64(0), agg.PositiveCount)
	assert.Equal(int64(1), agg.NegativeCount)
	assert.Equal(1.0, agg.WeightedTotal)
	assert.Equal(0.0, agg.WeightedPositive)

	got, err := s.GetRating(ctx, "r2")
	assert.NoError(err)
	assert.True(got.Verified)

	// untouched platforms read as zero
	agg, err = s.GetAggregate(ctx, models.PlatformDeepSeek)
	assert.NoError(err)
	assert.Equal(int64(0), agg.TotalRatings)
	assert.Empty(agg.Trend)

	all, err := s.ListAggregates(ctx)
	assert.NoError(err)
	assert.Equal(len(models.Platforms), len(all))
}

func TestApplyConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	type op struct {
		pol models.Polarity
		w   float64
	}
	ops := []op{}
	for i := 0; i < 40; i++ {
		pol := models.PolarityPositive
		if i%3 == 0 {
			pol = models.PolarityNegative
		}
		ops = append(ops, op{pol, 0.5 + float64(i%5)*0.125})
	}
	rand.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })

	var wantPos, wantNeg int64
	var wantWP, wantWT float64
	for _, o := range ops {
		wantWT += o.w
		if o.pol == models.PolarityPositive {
			wantPos++
			wantWP += o.w
		} else {
			wantNeg++
		}
	}

	var wg sync.WaitGroup
	for _, o := range ops {
		wg.Add(1)
		go func(o op) {
			defer wg.Done()
			assert.NoError(s.Apply(ctx, models.PlatformChatGPT, o.pol, o.w))
		}(o)
	}
	wg.Wait()

	agg, err := s.GetAggregate(ctx, models.PlatformChatGPT)
	assert.NoError(err)
	assert.Equal(int64(len(ops)), agg.TotalRatings)
	assert.Equal(wantPos, agg.PositiveCount)
	assert.Equal(wantNeg, agg.NegativeCount)
	assert.Equal(agg.TotalRatings, agg.PositiveCount+agg.NegativeCount)
	assert.InDelta(wantWT, agg.WeightedTotal, 0.000001)
	assert.InDelta(wantWP, agg.WeightedPositive, 0.000001)
	assert.LessOrEqual(agg.WeightedPositive, agg.WeightedTotal)
}

func TestDeviceHistory(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		pol := models.PolarityPositive
		if i == 11 {
			pol = models.PolarityNegative
		}
		r := models.Rating{
			ID:        fmt.Sprintf("h%d", i),
			DeviceID:  "dev-h",
			Platform:  models.PlatformClaude,
			Polarity:  pol,
			CreatedAt: now.Add(time.Duration(i-11) * time.Minute),
		}
		assert.NoError(s.InsertRating(ctx, &r))
	}

	// i=7..11 fall in the trailing five minutes
	n, err := s.CountDeviceRatingsSince(ctx, "dev-h", now.Add(-4*time.Minute-30*time.Second), 100)
	assert.NoError(err)
	assert.Equal(5, n)
	n, err = s.CountDeviceRatingsSince(ctx, "dev-h", now.Add(-time.Hour), 3)
	assert.NoError(err)
	assert.Equal(3, n)

	pols, err := s.RecentDevicePolarities(ctx, "dev-h", 4)
	assert.NoError(err)
	assert.Equal([]models.Polarity{models.PolarityNegative, models.PolarityPositive, models.PolarityPositive, models.PolarityPositive}, pols)

	pols, err = s.RecentDevicePolarities(ctx, "dev-other", 20)
	assert.NoError(err)
	assert.Empty(pols)
}

func TestTrend(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	now := time.Now().UTC()
	seed := []struct {
		id       string
		pol      models.Polarity
		flags    []models.Flag
		age      time.Duration
		platform models.Platform
	}{
		{"t1", models.PolarityPositive, nil, time.Hour, models.PlatformClaude},
		{"t2", models.PolarityPositive, nil, 2 * time.Hour, models.PlatformClaude},
		{"t3", models.PolarityNegative, nil, 3 * time.Hour, models.PlatformClaude},
		{"t4", models.PolarityNegative, []models.Flag{models.FlagTooFast}, time.Hour, models.PlatformClaude},
		{"t5", models.PolarityNegative, nil, 30 * time.Hour, models.PlatformClaude},
		{"t6", models.PolarityPositive, nil, time.Hour, models.PlatformGemini},
	}
	for _, sd := range seed {
		r := models.Rating{ID: sd.id, DeviceID: "dev-t", Platform: sd.platform, Polarity: sd.pol, CreatedAt: now.Add(-sd.age)}
		assert.NoError(s.InsertRating(ctx, &r))
		assert.NoError(s.Finalize(ctx, &r, Outcome{Flags: sd.flags, TrustWeight: weight(1.0), ProcessedAt: now}))
	}

	pos, total, err := s.VerifiedTally(ctx, models.PlatformClaude, now.Add(-24*time.Hour), now)
	assert.NoError(err)
	assert.Equal(int64(2), pos)
	assert.Equal(int64(3), total)

	for i := 0; i < 9; i++ {
		assert.NoError(s.PushTrend(ctx, models.PlatformClaude, i, now))
	}
	agg, err := s.GetAggregate(ctx, models.PlatformClaude)
	assert.NoError(err)
	assert.Equal([]int{2, 3, 4, 5, 6, 7, 8}, agg.Trend)
}

func TestJobRunClaims(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)
	now := time.Date(2026, 7, 10, 6, 0, 0, 0, time.UTC)

	_, ok, err := s.LastJobRun(ctx, "trend")
	assert.NoError(err)
	assert.False(ok)

	// never ran, so due
	claimed, err := s.ClaimJobRun(ctx, "trend", now.Add(-24*time.Hour), now)
	assert.NoError(err)
	assert.True(claimed)

	last, ok, err := s.LastJobRun(ctx, "trend")
	assert.NoError(err)
	assert.True(ok)
	assert.True(now.Equal(last))

	claimed, err = s.ClaimJobRun(ctx, "trend", now.Add(-24*time.Hour), now)
	assert.NoError(err)
	assert.False(claimed)

	later := now.Add(24 * time.Hour)
	claimed, err = s.ClaimJobRun(ctx, "trend", later.Add(-24*time.Hour), later)
	assert.NoError(err)
	assert.True(claimed)

	// jobs are tracked independently
	claimed, err = s.ClaimJobRun(ctx, "retention", now.Add(-7*24*time.Hour), now)
	assert.NoError(err)
	assert.True(claimed)

	manual := later.Add(time.Hour)
	assert.NoError(s.RecordJobRun(ctx, "trend", manual))
	last, _, err = s.LastJobRun(ctx, "trend")
	assert.NoError(err)
	assert.True(manual.Equal(last))
	claimed, err = s.ClaimJobRun(ctx, "trend", later, later.Add(2*time.Hour))
	assert.NoError(err)
	assert.False(claimed)
}

func TestJobRunClaimConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)
	now := time.Date(2026, 7, 10, 6, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var lk sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimJobRun(ctx, "trend", now.Add(-time.Hour), now)
			assert.NoError(err)
			if claimed {
				lk.Lock()
				wins++
				lk.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(1, wins)
}
