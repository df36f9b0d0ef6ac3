package bchan

import (
	"context"
	"errors"
)

// ErrSemaphoreClosed is returned by [Semaphore.Acquire] after
// [Semaphore.Close].
var ErrSemaphoreClosed = errors.New("bchan: semaphore is closed")

// Semaphore bounds concurrency with a [Chan] of tokens: acquiring sends a
// token, releasing receives one, so the channel's capacity is the limit
// and its backlog is the number of holders.
type Semaphore struct {
	tokens *Chan[struct{}]
}

// NewSemaphore creates a semaphore admitting n holders at once. opts
// configure the underlying channel; the default name is "semaphore".
// Panics if n <= 0.
func NewSemaphore(n int, opts ...Option) *Semaphore {
	if n <= 0 {
		panic("bchan: NewSemaphore requires n > 0")
	}
	opts = append([]Option{WithName("semaphore")}, opts...)
	return &Semaphore{tokens: New[struct{}](n, opts...)}
}

// Acquire blocks until a slot is free, ctx is done, or the semaphore is
// closed, and returns nil, ctx.Err() or [ErrSemaphoreClosed] respectively.
func (s *Semaphore) Acquire(ctx context.Context) error {
	ok, err := s.tokens.SendContext(ctx, struct{}{})
	switch {
	case err != nil:
		return err
	case !ok:
		return ErrSemaphoreClosed
	}
	return nil
}

// TryAcquire takes a slot if one is free right now.
func (s *Semaphore) TryAcquire() bool {
	return s.tokens.TrySend(struct{}{}) == Accepted
}

// Release returns a slot. It keeps working after Close so that holders
// can finish. Panics if nothing is held.
func (s *Semaphore) Release() {
	if _, st := s.tokens.TryRecv(); st != Received {
		panic("bchan: Semaphore.Release called without matching Acquire")
	}
}

// Close makes every pending and future Acquire fail with
// [ErrSemaphoreClosed]. Slots already held stay held until released.
func (s *Semaphore) Close() {
	s.tokens.Close()
}

// Available returns the number of free slots. The value may be stale as
// soon as it is returned.
func (s *Semaphore) Available() int {
	return s.tokens.ExactFreeSlots()
}

// Held returns the number of slots currently acquired.
func (s *Semaphore) Held() int {
	return s.tokens.Len()
}

// Stats returns the token channel's statistics.
func (s *Semaphore) Stats() Stats {
	return s.tokens.Stats()
}
