package ticker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Returned by a task to stop the loop. Any other task error is logged and the loop keeps going.
var ErrStop = errors.New("stop periodic task")

// Periodically runs the provided task function at the specified interval until the context is done or the task returns ErrStop.
//
// Runs never overlap: the next tick is only consumed after the previous run returns.
func Periodically(ctx context.Context, logger *slog.Logger, interval time.Duration, task func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := task(ctx); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				logger.Error("periodic task failed", "err", err, "interval", interval)
			}
		}
	}
}
