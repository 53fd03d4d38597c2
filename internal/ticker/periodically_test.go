package ticker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodicallyContinuesAfterError(t *testing.T) {
	assert := assert.New(t)

	var runs atomic.Int32
	err := Periodically(context.Background(), slog.Default(), time.Millisecond, func(ctx context.Context) error {
		n := runs.Add(1)
		if n < 3 {
			return errors.New("transient")
		}
		return ErrStop
	})
	assert.NoError(err)
	assert.Equal(int32(3), runs.Load())
}

func TestPeriodicallyCancel(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Periodically(ctx, slog.Default(), time.Hour, func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(err, context.Canceled)
}
