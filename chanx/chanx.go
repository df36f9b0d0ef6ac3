package chanx

import (
	"context"
	"errors"
	"fmt"

	"github.com/baxromumarov/bchan"
)

// ErrClosed is returned when the destination channel was closed while a
// helper still had values to send to it.
var ErrClosed = errors.New("chanx: send on closed channel")

// ToChan forwards every item of c to the returned native channel, which is
// closed once c is closed and drained, or ctx is done. An item taken from c
// but not forwarded because ctx ended is put back at the head of c with
// [bchan.Chan.Requeue], also when c has been closed meanwhile.
func ToChan[T any](ctx context.Context, c *bchan.Chan[T]) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			v, ok, err := c.RecvContext(ctx)
			if err != nil || !ok {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				c.Requeue(v)
				return
			}
		}
	}()
	return out
}

// UndeliveredError reports a value a helper had already taken from a
// native channel but could not send on. Err is ctx.Err() or [ErrClosed]
// and is matched by errors.Is.
type UndeliveredError[T any] struct {
	Value T
	Err   error
}

func (e *UndeliveredError[T]) Error() string {
	return fmt.Sprintf("chanx: value not delivered: %v", e.Err)
}

func (e *UndeliveredError[T]) Unwrap() error { return e.Err }

// FromChan sends every value received from in to c until in is closed. It
// returns nil when in is closed, ctx.Err() if ctx ends while waiting on
// in, or an [*UndeliveredError] holding the value in hand if ctx ends or c
// is closed while sending it. c is not closed by FromChan.
func FromChan[T any](ctx context.Context, in <-chan T, c *bchan.Chan[T]) error {
	for {
		select {
		case v, ok := <-in:
			if !ok {
				return nil
			}
			sent, err := c.SendContext(ctx, v)
			if err == nil && !sent {
				err = ErrClosed
			}
			if err != nil {
				return &UndeliveredError[T]{Value: v, Err: err}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
