package chanx

import (
	"context"
	"io"

	"github.com/baxromumarov/bchan"
)

// SendBatch sends values to c in order, blocking while c is full. It
// returns how many values were sent, with ctx.Err() if ctx ended first or
// [ErrClosed] if c was closed first.
func SendBatch[T any](ctx context.Context, c *bchan.Chan[T], values []T) (int, error) {
	for i, v := range values {
		sent, err := c.SendContext(ctx, v)
		if err != nil {
			return i, err
		}
		if !sent {
			return i, ErrClosed
		}
	}
	return len(values), nil
}

// RecvBatch blocks until at least one item is available, then takes up to
// n items in total without blocking again. It returns [io.EOF] and no
// items once c is closed and drained, or ctx.Err() if ctx ends before the
// first item.
//
// RecvBatch panics if n is not positive.
func RecvBatch[T any](ctx context.Context, c *bchan.Chan[T], n int) ([]T, error) {
	if n <= 0 {
		panic("chanx: RecvBatch requires n > 0")
	}
	v, ok, err := c.RecvContext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}

	batch := make([]T, 1, n)
	batch[0] = v
	for len(batch) < n {
		v, st := c.TryRecv()
		if st != bchan.Received {
			break
		}
		batch = append(batch, v)
	}
	return batch, nil
}
