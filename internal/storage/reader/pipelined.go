package reader

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// ReadPipelined behaves like Read but tokenizes and validates the next
// buffer while onBufferFull is still handling the previous one. Buffers are
// delivered in input order and at most one filled buffer waits in between.
//
// Unlike Read, every delivered slice is freshly allocated and may be kept.
func (r *Reader) ReadPipelined(ctx context.Context, src io.Reader, onBufferFull FlushFunc) (Stats, error) {
	var stats Stats
	batches := make(chan []types.Measurement, 1)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)

		batch := make([]types.Measurement, 0, r.opts.BufferCapacity)
		send := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]types.Measurement, 0, r.opts.BufferCapacity)
			return nil
		}

		err := r.scan(gctx, src, &stats, func(m types.Measurement) error {
			batch = append(batch, m)
			if len(batch) >= r.opts.BufferCapacity {
				return send()
			}
			return nil
		})
		if err != nil {
			return err
		}
		return send()
	})

	var flushed int64
	g.Go(func() error {
		for batch := range batches {
			if err := onBufferFull(gctx, batch); err != nil {
				return err
			}
			flushed++
		}
		return nil
	})

	err := g.Wait()
	stats.BuffersFlushed = flushed
	if err != nil {
		return stats, err
	}

	return stats, r.checkMinimum(stats)
}
