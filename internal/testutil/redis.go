package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// URL of an empty redis database for the calling test. Uses the scratch database named by RATER_TEST_REDIS_URL (flushed first) if set, otherwise an in-process miniredis.
func TestRedisURL(t *testing.T) string {
	url := os.Getenv("RATER_TEST_REDIS_URL")
	if url == "" {
		return "redis://" + miniredis.RunT(t).Addr()
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return url
}

func TestRedis(t *testing.T) *redis.Client {
	opt, err := redis.ParseURL(TestRedisURL(t))
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() {
		rdb.Close()
	})
	return rdb
}
