package flagstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

type MemFlagStore struct {
	lk   *sync.Mutex
	Data map[string]models.FlaggedRating
}

var _ FlagStore = MemFlagStore{}

func NewMemFlagStore() MemFlagStore {
	return MemFlagStore{
		lk:   &sync.Mutex{},
		Data: make(map[string]models.FlaggedRating),
	}
}

func (s MemFlagStore) Add(ctx context.Context, entry models.FlaggedRating) (bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.Data[entry.RatingID]; ok {
		return false, nil
	}
	s.Data[entry.RatingID] = entry
	return true, nil
}

func (s MemFlagStore) Get(ctx context.Context, ratingID string) (*models.FlaggedRating, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.Data[ratingID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s MemFlagStore) ListUnreviewed(ctx context.Context, since time.Time, limit int) ([]models.FlaggedRating, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := []models.FlaggedRating{}
	for _, v := range s.Data {
		if v.Reviewed || v.CreatedAt.Before(since) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s MemFlagStore) MarkReviewed(ctx context.Context, ratingID string, at time.Time) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.Data[ratingID]
	if !ok {
		return ErrNotFound
	}
	v.Reviewed = true
	v.ReviewedAt = &at
	s.Data[ratingID] = v
	return nil
}

func (s MemFlagStore) CountUnreviewed(ctx context.Context) (int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var n int64
	for _, v := range s.Data {
		if !v.Reviewed {
			n++
		}
	}
	return n, nil
}
