package bchan

// RecvState is the outcome of a non-blocking receive or peek.
type RecvState int

const (
	// Received means an item was returned.
	Received RecvState = iota
	// Empty means the channel is open but has nothing ready for this handle.
	Empty
	// Closed means the channel is closed and this handle has drained it.
	Closed
)

func (s RecvState) String() string {
	switch s {
	case Received:
		return "received"
	case Empty:
		return "empty"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// SendState is the outcome of [Chan.TrySend].
type SendState int

const (
	// Accepted means the value was enqueued.
	Accepted SendState = iota
	// Rejected means the channel is open but has no free slot. The value
	// was not enqueued.
	Rejected
	// Discarded means the channel is closed and the value was dropped.
	Discarded
)

func (s SendState) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}
