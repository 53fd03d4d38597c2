package countstore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func testBasics(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()
	day := DayBucket(time.Now())

	c, err := cs.GetCount(ctx, "test1", "val1", day)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "test1", "val1", day))
	assert.NoError(cs.Increment(ctx, "test1", "val1", day))

	c, err = cs.GetCount(ctx, "test1", "val1", day)
	assert.NoError(err)
	assert.Equal(2, c)

	// other days and values are separate buckets
	c, err = cs.GetCount(ctx, "test1", "val1", "2001-01-01")
	assert.NoError(err)
	assert.Equal(0, c)
	c, err = cs.GetCount(ctx, "test1", "val2", day)
	assert.NoError(err)
	assert.Equal(0, c)
}

func testCeiling(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()
	day := DayBucket(time.Now())

	for i := 0; i < 3; i++ {
		ok, err := cs.IncrementBelow(ctx, "rate", "dev1", day, 3)
		assert.NoError(err)
		assert.True(ok)
	}
	ok, err := cs.IncrementBelow(ctx, "rate", "dev1", day, 3)
	assert.NoError(err)
	assert.False(ok)

	c, err := cs.GetCount(ctx, "rate", "dev1", day)
	assert.NoError(err)
	assert.Equal(3, c)
}

func testConcurrentCeiling(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()
	day := DayBucket(time.Now())

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				ok, err := cs.IncrementBelow(ctx, "rate", "dev2", day, 50)
				assert.NoError(err)
				if ok {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(int32(50), accepted.Load())
	c, err := cs.GetCount(ctx, "rate", "dev2", day)
	assert.NoError(err)
	assert.Equal(50, c)
}

func testPurge(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		day := DayBucket(now.AddDate(0, 0, -i))
		assert.NoError(cs.Increment(ctx, "rate", "dev3", day))
	}
	cutoff := now.AddDate(0, 0, -7)

	// 8, 9 days old are stale; cap the first run at one row
	n, err := cs.PurgeBefore(ctx, cutoff, 1)
	assert.NoError(err)
	assert.Equal(1, n)
	n, err = cs.PurgeBefore(ctx, cutoff, 500)
	assert.NoError(err)
	assert.Equal(1, n)
	n, err = cs.PurgeBefore(ctx, cutoff, 500)
	assert.NoError(err)
	assert.Equal(0, n)

	c, err := cs.GetCount(ctx, "rate", "dev3", DayBucket(cutoff))
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = cs.GetCount(ctx, "rate", "dev3", DayBucket(now.AddDate(0, 0, -9)))
	assert.NoError(err)
	assert.Equal(0, c)
}

func TestDayBucket(t *testing.T) {
	assert := assert.New(t)

	loc := time.FixedZone("UTC-8", -8*60*60)
	assert.Equal("2026-03-21", DayBucket(time.Date(2026, 3, 20, 23, 30, 0, 0, loc)))
}

func TestMemCountStore(t *testing.T) {
	testBasics(t, NewMemCountStore())
	testCeiling(t, NewMemCountStore())
	testConcurrentCeiling(t, NewMemCountStore())
	testPurge(t, NewMemCountStore())
}

func TestGormCountStore(t *testing.T) {
	for _, fn := range []func(*testing.T, CountStore){testBasics, testCeiling, testConcurrentCeiling, testPurge} {
		cs, err := NewGormCountStore(testutil.TestDB(t))
		if err != nil {
			t.Fatal(err)
		}
		fn(t, cs)
	}
}

func TestRedisCountStore(t *testing.T) {
	for _, fn := range []func(*testing.T, CountStore){testBasics, testCeiling, testConcurrentCeiling} {
		fn(t, NewRedisCountStore(testutil.TestRedis(t)))
	}
}

func TestRedisCountKey(t *testing.T) {
	assert := assert.New(t)

	a := redisCountKey("device-ratings", "dev/1", "2026-03-20")
	b := redisCountKey("device-ratings", "dev", "1/2026-03-20")
	assert.NotEqual(a, b)
	assert.Equal(3, strings.Count(a, "/"))
	assert.True(strings.HasSuffix(a, "/2026-03-20"))
	assert.Len(redisCountKey("r", strings.Repeat("x", 128), "d"), len("count/r/")+16+len("/d"))
}
