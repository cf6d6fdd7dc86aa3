package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// FlushFn persists one batch. It is called with at most batchSize items and
// never with an empty batch.
type FlushFn[T any] func(ctx context.Context, batch []T) error

// LoadBatches drains items from in, groups them into batches of batchSize,
// and calls flush per batch. It returns the number of items flushed and the
// first error encountered. A progress line with running totals and
// instantaneous rows/sec is logged after every successful flush.
//
// Cancellation: returns (total, ctx.Err()) when ctx is done. The caller owns
// closing in.
func LoadBatches[T any](
	ctx context.Context,
	in <-chan T,
	batchSize int,
	clock clockwork.Clock,
	log *zap.Logger,
	flush FlushFn[T],
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if flush == nil {
		return 0, fmt.Errorf("flush must not be nil")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		total     int64
		batches   int64
		batch     = make([]T, 0, batchSize)
		lastFlush = clock.Now()
	)

	doFlush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n := len(batch)
		if err := flush(ctx, batch); err != nil {
			log.Error("batch flush failed",
				zap.Int("batch_rows", n),
				zap.Int64("rows_loaded", total),
				zap.Error(err))
			return err
		}
		// Keep capacity; avoid churn across flushes.
		batch = batch[:0]

		total += int64(n)
		batches++
		now := clock.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		log.Info("processed rows",
			zap.Int64("batch", batches),
			zap.Int64("rows_total", total),
			zap.Float64("rows_per_sec", rps),
			zap.Duration("batch_elapsed", since.Truncate(time.Millisecond)))
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case item, ok := <-in:
			if !ok {
				if err := doFlush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, item)
			if len(batch) >= batchSize {
				if err := doFlush(); err != nil {
					return total, err
				}
			}
		}
	}
}
