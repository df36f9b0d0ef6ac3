package chanx

import (
	"context"

	"github.com/baxromumarov/bchan"
	"golang.org/x/sync/errgroup"
)

// Merge moves every item of ins into out (fan-in) and closes out once all
// inputs are closed and drained. Items from one input keep their relative
// order; across inputs the order is non-deterministic.
//
// Merge blocks until it is done. If ctx ends, or out is closed by someone
// else, out is closed and the first error is returned: ctx.Err() or
// [ErrClosed]. Items not yet moved stay on their inputs, including one a
// pump had already received, which is requeued even on a closed input.
func Merge[T any](ctx context.Context, out *bchan.Chan[T], ins ...*bchan.Chan[T]) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, in := range ins {
		g.Go(func() error {
			return pump(ctx, in, out)
		})
	}
	err := g.Wait()
	out.Close()
	return err
}

func pump[T any](ctx context.Context, in, out *bchan.Chan[T]) error {
	for {
		v, ok, err := in.RecvContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		sent, err := out.SendContext(ctx, v)
		if err == nil && !sent {
			err = ErrClosed
		}
		if err != nil {
			in.Requeue(v)
			return err
		}
	}
}
