package countstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spaolacci/murmur3"
)

var redisCountPrefix string = "count/"

// day buckets expire on their own; this is the retention policy for the redis backend
var redisDayTTL = 48 * time.Hour

// INCR only when the current value is below ARGV[1], in a single server-side step
var incrementBelowScript = redis.NewScript(`
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
if c >= tonumber(ARGV[1]) then
	return 0
end
redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1
`)

type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(rdb *redis.Client) *RedisCountStore {
	return &RedisCountStore{
		Client: rdb,
	}
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func hashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// vals are client-supplied fingerprints, so they are hashed to keep keys short and free of the separator
func redisCountKey(name, val, day string) string {
	return redisCountPrefix + name + "/" + hashOfString(val) + "/" + day
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, day string) (int, error) {
	c, err := s.Client.Get(ctx, redisCountKey(name, val, day)).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val, day string) error {
	key := redisCountKey(name, val, day)
	multi := s.Client.Pipeline()
	multi.Incr(ctx, key)
	multi.Expire(ctx, key, redisDayTTL)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) IncrementBelow(ctx context.Context, name, val, day string, ceiling int) (bool, error) {
	key := redisCountKey(name, val, day)
	ok, err := incrementBelowScript.Run(ctx, s.Client, []string{key}, ceiling, int(redisDayTTL.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// no-op: day buckets carry a TTL
func (s *RedisCountStore) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	return 0, nil
}
