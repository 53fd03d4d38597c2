package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlatform(t *testing.T) {
	assert := assert.New(t)

	p, err := ParsePlatform("Claude")
	assert.NoError(err)
	assert.Equal(PlatformClaude, p)

	_, err = ParsePlatform("bard")
	assert.Error(err)

	_, err = ParsePolarity("neutral")
	assert.Error(err)
}

func TestFlagsRoundTrip(t *testing.T) {
	assert := assert.New(t)

	s := JoinFlags([]Flag{FlagTooFast, FlagBackgroundTab, FlagTooFast, ""})
	assert.Equal("BACKGROUND_TAB,TOO_FAST", s)
	assert.Equal([]Flag{FlagBackgroundTab, FlagTooFast}, ParseFlags(s))
	assert.Empty(ParseFlags(""))
}

func TestPushTrend(t *testing.T) {
	assert := assert.New(t)

	agg := PlatformAggregate{Platform: PlatformGrok}
	for i := 1; i <= 9; i++ {
		agg.PushTrend(i * 10)
	}
	assert.Equal(TrendLength, len(agg.Trend))
	assert.Equal([]int{30, 40, 50, 60, 70, 80, 90}, agg.Trend)

	assert.Equal(0.0, agg.WeightedScore())
	agg.WeightedTotal = 4
	agg.WeightedPositive = 3
	assert.InDelta(75.0, agg.WeightedScore(), 0.0001)
}
