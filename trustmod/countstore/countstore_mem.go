package countstore

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type memKey struct {
	name string
	val  string
	day  string
}

type MemCountStore struct {
	Counts *xsync.MapOf[memKey, int]
}

var _ CountStore = MemCountStore{}

func NewMemCountStore() MemCountStore {
	return MemCountStore{
		Counts: xsync.NewMapOf[memKey, int](),
	}
}

func (s MemCountStore) GetCount(ctx context.Context, name, val, day string) (int, error) {
	v, ok := s.Counts.Load(memKey{name, val, day})
	if !ok {
		return 0, nil
	}
	return v, nil
}

func (s MemCountStore) Increment(ctx context.Context, name, val, day string) error {
	s.Counts.Compute(memKey{name, val, day}, func(old int, loaded bool) (int, bool) {
		return old + 1, false
	})
	return nil
}

func (s MemCountStore) IncrementBelow(ctx context.Context, name, val, day string, ceiling int) (bool, error) {
	accepted := false
	s.Counts.Compute(memKey{name, val, day}, func(old int, loaded bool) (int, bool) {
		if old >= ceiling {
			accepted = false
			return old, !loaded
		}
		accepted = true
		return old + 1, false
	})
	return accepted, nil
}

func (s MemCountStore) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	cutoffDay := DayBucket(cutoff)
	stale := []memKey{}
	s.Counts.Range(func(k memKey, _ int) bool {
		if k.day < cutoffDay {
			stale = append(stale, k)
		}
		return len(stale) < limit
	})
	for _, k := range stale {
		s.Counts.Delete(k)
	}
	return len(stale), nil
}
