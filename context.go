package bchan

import "context"

// RecvContext is [Chan.Recv] with cancellation. If ctx is done before an
// item is taken, it returns ctx.Err() and leaves the backlog untouched; an
// item is only ever dequeued by a call that returns it.
//
// The boolean is false with a nil error when the channel is closed and
// this handle has drained it.
func (c *Chan[T]) RecvContext(ctx context.Context) (T, bool, error) {
	return c.recv(ctx, true)
}

// PeekContext is [Chan.Peek] with cancellation.
func (c *Chan[T]) PeekContext(ctx context.Context) (T, bool, error) {
	return c.recv(ctx, false)
}

// SendContext is [Chan.Send] with cancellation. It returns true if v was
// enqueued, false with a nil error if the channel is closed and v was
// dropped, and false with ctx.Err() if ctx is done first, in which case v
// was not enqueued.
func (c *Chan[T]) SendContext(ctx context.Context, v T) (bool, error) {
	return c.send(ctx, v)
}
