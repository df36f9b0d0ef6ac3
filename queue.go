package bchan

import "slices"

// node is one entry of the shared backlog. seq grows by one per append,
// so the distance between two nodes is the number of items between them.
type node[T any] struct {
	next *node[T]
	val  T
	seq  uint64
}

// backlog is the unbounded log shared by every handle of a channel family.
// Only the tail is held here; nodes behind the slowest cursor are garbage.
//
// backlog and cursor do no locking of their own. Callers hold state.mu.
type backlog[T any] struct {
	tail *node[T]
}

func newBacklog[T any]() *backlog[T] {
	return &backlog[T]{tail: &node[T]{}}
}

func (b *backlog[T]) append(v T) {
	n := &node[T]{val: v, seq: b.tail.seq + 1}
	b.tail.next = n
	b.tail = n
}

// cursorAtTail returns a cursor that observes only items appended after
// this call.
func (b *backlog[T]) cursorAtTail() *cursor[T] {
	return &cursor[T]{head: b.tail}
}

// cursor is one handle's read position. head is the last node consumed
// through it; pushed holds items put back with unget, most recent last.
type cursor[T any] struct {
	head   *node[T]
	pushed []T
}

func (c *cursor[T]) clone() *cursor[T] {
	return &cursor[T]{head: c.head, pushed: slices.Clone(c.pushed)}
}

func (c *cursor[T]) empty() bool {
	return len(c.pushed) == 0 && c.head.next == nil
}

func (c *cursor[T]) size(b *backlog[T]) int {
	return len(c.pushed) + int(b.tail.seq-c.head.seq)
}

func (c *cursor[T]) peek() (T, bool) {
	if n := len(c.pushed); n > 0 {
		return c.pushed[n-1], true
	}
	if next := c.head.next; next != nil {
		return next.val, true
	}
	var zero T
	return zero, false
}

func (c *cursor[T]) pop() (T, bool) {
	var zero T
	if n := len(c.pushed); n > 0 {
		v := c.pushed[n-1]
		c.pushed[n-1] = zero
		c.pushed = c.pushed[:n-1]
		return v, true
	}
	next := c.head.next
	if next == nil {
		return zero, false
	}
	c.head = next
	return next.val, true
}

func (c *cursor[T]) pushFront(v T) {
	c.pushed = append(c.pushed, v)
}
