package cachestore

import (
	"context"
	"encoding/json"
	"log/slog"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

// Returns the cached value for (name, key), or calls fill and caches the result. Cache errors degrade to calling fill.
func Fetch[T any](ctx context.Context, cs CacheStore, name, key string, fill func(context.Context) (T, error)) (T, error) {
	raw, err := cs.Get(ctx, name, key)
	if err != nil {
		slog.Warn("cache read failed", "name", name, "key", key, "err", err)
	}
	if raw != "" {
		var out T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
	}

	out, err := fill(ctx)
	if err != nil {
		return out, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := cs.Set(ctx, name, key, string(b)); err != nil {
		slog.Warn("cache write failed", "name", name, "key", key, "err", err)
	}
	return out, nil
}
