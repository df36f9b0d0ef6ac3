package bchan

// Stats is a point-in-time snapshot of a channel, as seen from one handle.
type Stats struct {
	Name     string
	Capacity int
	Len      int // items the handle has yet to receive
	Closed   bool
	Handles  int64 // handles created by New, Dup and Clone

	KnownFreeSlots int // writers' view of free capacity
	PendingFrees   int // receives not yet folded into KnownFreeSlots

	Sent      int64 // items accepted by Send, SendContext and TrySend
	Received  int64 // items taken by any handle
	Rejected  int64 // TrySend calls that found no free slot
	Discarded int64 // writes dropped because the channel was closed
	Ungot     int64 // items pushed back with Unget
	Merges    int64 // times pending frees were folded in
}

// FreeSlots returns the exact free capacity at the time of the snapshot.
func (s Stats) FreeSlots() int {
	return s.KnownFreeSlots + s.PendingFrees
}

// Stats returns a snapshot of the channel's counters. Pending frees are
// reported as they are, not folded in.
func (c *Chan[T]) Stats() Stats {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Name:           s.name,
		Capacity:       s.capacity,
		Len:            c.cur.size(s.backlog),
		Closed:         s.closed,
		Handles:        s.handles,
		KnownFreeSlots: s.knownFree,
		PendingFrees:   s.pendingFrees,
		Sent:           s.sent,
		Received:       s.received,
		Rejected:       s.rejected,
		Discarded:      s.discarded,
		Ungot:          s.ungot,
		Merges:         s.merges,
	}
}
