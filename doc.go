// Package bchan provides a bounded, closeable FIFO channel with look-ahead,
// push-back and broadcast duplication.
//
// Go's built-in channels panic on send after close, cannot peek, cannot put
// an item back and cannot be read independently by several consumers. [Chan]
// covers those cases while keeping the usual producer/consumer shape:
//
//	c := bchan.New[string](16)
//	go func() {
//	    defer c.Close()
//	    for _, line := range lines {
//	        c.Send(line) // blocks while the channel is full
//	    }
//	}()
//	for {
//	    line, ok := c.Recv() // false once closed and drained
//	    if !ok {
//	        break
//	    }
//	    handle(line)
//	}
//
// # Operations
//
// Blocking: [Chan.Send], [Chan.Recv], [Chan.Peek]. Non-blocking:
// [Chan.TrySend] returns a [SendState] ([Accepted], [Rejected],
// [Discarded]); [Chan.TryRecv] and [Chan.TryPeek] return a [RecvState]
// ([Received], [Empty], [Closed]). None of them returns an error or panics.
//
// [Chan.Unget] pushes an item back to the head of the backlog. It always
// succeeds on an open channel, even past capacity, so an item that was
// taken but could not be processed is never lost. Unget on a closed
// channel drops the item like any other write; [Chan.Requeue] keeps an
// item the handle already received, so it can still be drained.
//
// # Closing
//
// [Chan.Close] is idempotent. After it, writes of any kind are silently
// dropped, readers drain whatever is still queued, and then [Chan.Recv]
// returns false without blocking. Every blocked caller wakes up on close.
//
// # Cancellation
//
// [Chan.RecvContext], [Chan.PeekContext] and [Chan.SendContext] return
// ctx.Err() when the context ends first. They decide under the channel's
// lock whether to take the item or return the error, so a cancelled call
// never consumes or produces an item it does not report.
//
// # Broadcast
//
// [Chan.Dup] returns a second handle that sees every item sent after the
// call, through any handle, with its own read position: receives on one
// handle do not steal from another. [Chan.Clone] starts the new handle at
// the current read position instead. All handles share the closed flag and
// the capacity counters.
//
// # Capacity accounting
//
// Free capacity is split in two counters: writers own a "known free"
// count that they decrement, readers own a "pending frees" count that they
// increment. Writers fold pending frees in only when their own count runs
// out ([Chan.EstimateFreeSlots]), so while there is known slack the two
// sides do not touch each other's state. [Chan.ExactFreeSlots] always
// folds them together.
//
// # Built on Chan
//
// [Pool] is a worker pool whose task queue is a Chan, and [Semaphore] is a
// token Chan. The chanx subpackage has helpers for draining, bridging to
// native channels, fan-in, broadcast fan-out and batching; promstats
// exports [Stats] and [PoolStats] to Prometheus.
package bchan
