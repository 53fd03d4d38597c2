package flagstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"github.com/redis/go-redis/v9"
)

var (
	// hash of rating ID to JSON entry
	redisFlagEntries = "review/entries"
	// sorted set of unreviewed rating IDs, scored by creation time (unix millis)
	redisFlagPending = "review/pending"
)

type RedisFlagStore struct {
	Client *redis.Client
}

var _ FlagStore = (*RedisFlagStore)(nil)

func NewRedisFlagStore(rdb *redis.Client) *RedisFlagStore {
	return &RedisFlagStore{Client: rdb}
}

// HSETNX the entry and index it as pending, both or neither
var addFlagScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`)

func (s *RedisFlagStore) Add(ctx context.Context, entry models.FlaggedRating) (bool, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	keys := []string{redisFlagEntries, redisFlagPending}
	created, err := addFlagScript.Run(ctx, s.Client, keys, entry.RatingID, string(b), entry.CreatedAt.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("adding review entry: %w", err)
	}
	return created == 1, nil
}

func (s *RedisFlagStore) Get(ctx context.Context, ratingID string) (*models.FlaggedRating, error) {
	b, err := s.Client.HGet(ctx, redisFlagEntries, ratingID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var entry models.FlaggedRating
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisFlagStore) ListUnreviewed(ctx context.Context, since time.Time, limit int) ([]models.FlaggedRating, error) {
	ids, err := s.Client.ZRangeByScore(ctx, redisFlagPending, &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.UnixMilli(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := []models.FlaggedRating{}
	for _, id := range ids {
		entry, err := s.Get(ctx, id)
		if err == ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (s *RedisFlagStore) MarkReviewed(ctx context.Context, ratingID string, at time.Time) error {
	entry, err := s.Get(ctx, ratingID)
	if err != nil {
		return err
	}
	entry.Reviewed = true
	entry.ReviewedAt = &at
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	multi := s.Client.TxPipeline()
	multi.HSet(ctx, redisFlagEntries, ratingID, b)
	multi.ZRem(ctx, redisFlagPending, ratingID)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisFlagStore) CountUnreviewed(ctx context.Context) (int64, error) {
	return s.Client.ZCard(ctx, redisFlagPending).Result()
}
