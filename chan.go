package bchan

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// state is shared by every handle derived from one [New] call.
type state[T any] struct {
	mu       sync.Mutex
	readable sync.Cond // an item was added, or the channel closed
	writable sync.Cond // a slot was freed, or the channel closed

	closed bool
	done   chan struct{}

	// knownFree is the writers' view of free capacity. It only ever
	// undercounts: receivers add to pendingFrees instead, and the two are
	// folded together once knownFree runs out.
	knownFree    int
	pendingFrees int
	capacity     int

	backlog *backlog[T]

	readWaiters  int
	writeWaiters int

	name string
	log  logrus.FieldLogger

	handles   int64
	sent      int64
	received  int64
	rejected  int64
	discarded int64
	ungot     int64
	merges    int64
}

// Chan is a bounded, closeable FIFO channel. A Chan is a handle: handles
// created with [Chan.Dup] or [Chan.Clone] share the closed flag, the
// capacity counters and the backlog, but each has its own read position.
//
// Every method is safe for concurrent use and runs as one atomic step
// with respect to every other handle of the same channel.
type Chan[T any] struct {
	s   *state[T]
	cur *cursor[T] // guarded by s.mu
}

// New creates an open, empty channel that accepts up to capacity items
// before writers have to wait. capacity is not validated: a channel with
// capacity <= 0 is permanently full for [Chan.Send] and [Chan.TrySend],
// while [Chan.Unget] still works.
func New[T any](capacity int, opts ...Option) *Chan[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &state[T]{
		done:      make(chan struct{}),
		knownFree: capacity,
		capacity:  capacity,
		backlog:   newBacklog[T](),
		name:      cfg.name,
		log:       cfg.logger.WithField("channel", cfg.name),
		handles:   1,
	}
	s.readable.L = &s.mu
	s.writable.L = &s.mu

	return &Chan[T]{s: s, cur: s.backlog.cursorAtTail()}
}

// Dup returns a new handle that observes every item sent after the call,
// through any handle, and none sent before it. Receives on one handle do
// not take items from another. Items pushed back on c are not inherited.
//
// Every successful receive on any handle frees one slot of the shared
// capacity.
func (c *Chan[T]) Dup() *Chan[T] {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Chan[T]{s: s, cur: s.backlog.cursorAtTail()}
	s.handles++
	s.log.WithField("handles", s.handles).Debug("channel duplicated")
	return d
}

// Clone returns a new handle positioned where c is now: it will receive
// the same remaining backlog as c, including items pushed back on c,
// followed by everything sent later.
func (c *Chan[T]) Clone() *Chan[T] {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Chan[T]{s: s, cur: c.cur.clone()}
	s.handles++
	s.log.WithFields(logrus.Fields{
		"handles": s.handles,
		"backlog": d.cur.size(s.backlog),
	}).Debug("channel cloned")
	return d
}

// Recv blocks until an item is available to this handle and returns it
// with true. Once the channel is closed and this handle has drained its
// backlog, Recv returns the zero value and false without blocking.
func (c *Chan[T]) Recv() (T, bool) {
	v, ok, _ := c.recv(context.Background(), true)
	return v, ok
}

// TryRecv is the non-blocking form of [Chan.Recv].
func (c *Chan[T]) TryRecv() (T, RecvState) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if v, ok := c.dequeueLocked(); ok {
		return v, Received
	}
	var zero T
	if c.s.closed {
		return zero, Closed
	}
	return zero, Empty
}

// Peek is like [Chan.Recv] but leaves the item at the head of the backlog.
func (c *Chan[T]) Peek() (T, bool) {
	v, ok, _ := c.recv(context.Background(), false)
	return v, ok
}

// TryPeek is the non-blocking form of [Chan.Peek].
func (c *Chan[T]) TryPeek() (T, RecvState) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if v, ok := c.cur.peek(); ok {
		return v, Received
	}
	var zero T
	if c.s.closed {
		return zero, Closed
	}
	return zero, Empty
}

// Send enqueues v, blocking while the channel is open and full. If the
// channel is closed, v is silently dropped, so writers can finish normally
// after someone else closes a channel they do not own.
func (c *Chan[T]) Send(v T) {
	_, _ = c.send(context.Background(), v)
}

// TrySend is the non-blocking form of [Chan.Send].
func (c *Chan[T]) TrySend(v T) SendState {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.discardLocked()
		return Discarded
	}
	if s.estimateLocked() <= 0 {
		s.rejected++
		return Rejected
	}
	s.enqueueLocked(v)
	return Accepted
}

// Unget puts v back at the head of this handle's backlog, so it is the
// next item this handle receives. It always takes a slot, even when the
// channel is already full, so an item that was in flight is never lost;
// the channel may briefly hold more than its capacity. Unget on a closed
// channel drops v.
func (c *Chan[T]) Unget(v T) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.discardLocked()
		return
	}
	c.pushBackLocked(v)
}

// Requeue is [Chan.Unget] for an item this handle has already received
// and could not deliver: v goes back to the head of the handle's backlog
// even if the channel was closed in the meantime, so it can still be
// drained. Use Unget for anything else; after Close, new items must not
// enter the channel.
func (c *Chan[T]) Requeue(v T) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.pushBackLocked(v)
}

func (c *Chan[T]) pushBackLocked(v T) {
	s := c.s
	s.knownFree--
	s.ungot++
	c.cur.pushFront(v)
	if free := s.knownFree + s.pendingFrees; free < 0 {
		s.log.WithField("free", free).Debug("unget beyond capacity")
	}
	s.wakeReaders()
}

// Close marks the channel closed for every handle. Further sends are
// dropped; items already queued stay receivable. Every blocked reader and
// writer wakes up and re-checks. Close is idempotent.
func (c *Chan[T]) Close() {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.readable.Broadcast()
	s.writable.Broadcast()
	s.log.WithFields(logrus.Fields{
		"backlog": c.cur.size(s.backlog),
		"free":    s.knownFree + s.pendingFrees,
	}).Debug("channel closed")
}

// EstimateFreeSlots returns a lower bound on the free capacity. While the
// writers' count is positive it is returned as is and receivers are not
// consulted. Otherwise the receivers' pending frees are folded in first.
func (c *Chan[T]) EstimateFreeSlots() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.estimateLocked()
}

// ExactFreeSlots folds pending frees in unconditionally and returns the
// exact free capacity.
func (c *Chan[T]) ExactFreeSlots() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.mergeLocked()
}

// IsFull reports whether [Chan.EstimateFreeSlots] is <= 0.
func (c *Chan[T]) IsFull() bool {
	return c.EstimateFreeSlots() <= 0
}

// IsEmpty reports whether this handle has nothing to receive right now.
// Capacity accounting is not consulted.
func (c *Chan[T]) IsEmpty() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.cur.empty()
}

// IsClosed reports whether [Chan.Close] has been called on any handle.
func (c *Chan[T]) IsClosed() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.closed
}

// Done returns a channel that is closed when the channel is closed.
func (c *Chan[T]) Done() <-chan struct{} {
	return c.s.done
}

// Len returns the number of items this handle has yet to receive.
func (c *Chan[T]) Len() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.cur.size(c.s.backlog)
}

// Cap returns the capacity the channel was created with.
func (c *Chan[T]) Cap() int {
	return c.s.capacity
}

// Name returns the name set with [WithName].
func (c *Chan[T]) Name() string {
	return c.s.name
}

func (c *Chan[T]) recv(ctx context.Context, remove bool) (T, bool, error) {
	s := c.s
	stop := s.wakeOnDone(ctx, &s.readable)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		if remove {
			if v, ok := c.dequeueLocked(); ok {
				return v, true, nil
			}
		} else if v, ok := c.cur.peek(); ok {
			return v, true, nil
		}
		if s.closed {
			return zero, false, nil
		}
		s.readWaiters++
		s.readable.Wait()
		s.readWaiters--
	}
}

func (c *Chan[T]) send(ctx context.Context, v T) (bool, error) {
	s := c.s
	stop := s.wakeOnDone(ctx, &s.writable)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if s.closed {
			s.discardLocked()
			return false, nil
		}
		if s.estimateLocked() > 0 {
			s.enqueueLocked(v)
			return true, nil
		}
		s.writeWaiters++
		s.writable.Wait()
		s.writeWaiters--
	}
}

func (c *Chan[T]) dequeueLocked() (T, bool) {
	v, ok := c.cur.pop()
	if ok {
		c.s.pendingFrees++
		c.s.received++
		c.s.wakeWriters()
	}
	return v, ok
}

// estimateLocked is the lazy merge: pendingFrees is only read, and reset,
// once knownFree is exhausted.
func (s *state[T]) estimateLocked() int {
	if s.knownFree > 0 {
		return s.knownFree
	}
	return s.mergeLocked()
}

func (s *state[T]) mergeLocked() int {
	if s.pendingFrees != 0 {
		s.knownFree += s.pendingFrees
		s.pendingFrees = 0
		s.merges++
	}
	return s.knownFree
}

func (s *state[T]) enqueueLocked(v T) {
	s.knownFree--
	s.sent++
	s.backlog.append(v)
	s.wakeReaders()
}

func (s *state[T]) discardLocked() {
	s.discarded++
	s.log.Debug("write discarded on closed channel")
}

func (s *state[T]) wakeReaders() {
	if s.readWaiters > 0 {
		s.readable.Broadcast()
	}
}

func (s *state[T]) wakeWriters() {
	if s.writeWaiters > 0 {
		s.writable.Broadcast()
	}
}

// wakeOnDone arranges for cond to be broadcast when ctx is done, so a
// waiter parked on cond can observe the cancellation.
func (s *state[T]) wakeOnDone(ctx context.Context, cond *sync.Cond) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, func() {
		s.mu.Lock()
		cond.Broadcast()
		s.mu.Unlock()
	})
}
