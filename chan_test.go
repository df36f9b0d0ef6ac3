package bchan

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChan_TrySendCapacityScenario(t *testing.T) {
	c := New[int](2)

	assert.Equal(t, Accepted, c.TrySend(1))
	assert.Equal(t, Accepted, c.TrySend(2))
	assert.Equal(t, Rejected, c.TrySend(3))

	v, ok := c.Recv()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, Accepted, c.TrySend(3))

	v, ok = c.Recv()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Recv()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, st := c.TryRecv()
	assert.Equal(t, Empty, st)
}

func TestChan_CloseAndDrainScenario(t *testing.T) {
	c := New[string](1)
	c.Send("a")
	c.Close()

	assert.Equal(t, Discarded, c.TrySend("b"))

	v, ok := c.Recv()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = c.Recv()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestChan_FIFO(t *testing.T) {
	const n = 100
	c := New[int](n)

	want := make([]int, n)
	for i := range n {
		want[i] = i * 7
		c.Send(want[i])
	}

	got := make([]int, 0, n)
	for range n {
		v, ok := c.Recv()
		require.True(t, ok)
		got = append(got, v)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("receive order mismatch (-want +got):\n%s", diff)
	}
}

func TestChan_CapacityBound(t *testing.T) {
	for _, capacity := range []int{0, 1, 3, 10} {
		c := New[int](capacity)
		accepted := 0
		for i := range capacity + 5 {
			if c.TrySend(i) == Accepted {
				accepted++
			}
		}
		assert.Equal(t, capacity, accepted, "capacity %d", capacity)
		assert.Equal(t, capacity, c.Len())
		assert.True(t, c.IsFull())
	}
}

func TestChan_NonPositiveCapacity(t *testing.T) {
	c := New[int](-2)
	assert.True(t, c.IsFull())
	assert.Equal(t, Rejected, c.TrySend(1))
	assert.Equal(t, -2, c.ExactFreeSlots())

	// Unget still works on a permanently full channel.
	c.Unget(9)
	v, st := c.TryRecv()
	assert.Equal(t, Received, st)
	assert.Equal(t, 9, v)
	assert.Equal(t, -2, c.ExactFreeSlots())
	assert.Equal(t, Rejected, c.TrySend(1))
}

func TestChan_LazyMerge(t *testing.T) {
	t.Run("slack known", func(t *testing.T) {
		c := New[int](3)
		require.Equal(t, Accepted, c.TrySend(1))
		_, st := c.TryRecv()
		require.Equal(t, Received, st)

		// Writers still know of two free slots; pending frees stay put.
		assert.Equal(t, 2, c.EstimateFreeSlots())
		s := c.Stats()
		assert.Equal(t, 2, s.KnownFreeSlots)
		assert.Equal(t, 1, s.PendingFrees)
		assert.Equal(t, int64(0), s.Merges)
		assert.Equal(t, 3, s.FreeSlots())

		assert.Equal(t, 3, c.ExactFreeSlots())
		s = c.Stats()
		assert.Equal(t, 3, s.KnownFreeSlots)
		assert.Equal(t, 0, s.PendingFrees)
		assert.Equal(t, int64(1), s.Merges)
	})

	t.Run("exhausted", func(t *testing.T) {
		c := New[int](2)
		c.Send(1)
		c.Send(2)
		_, _ = c.Recv()

		s := c.Stats()
		assert.Equal(t, 0, s.KnownFreeSlots)
		assert.Equal(t, 1, s.PendingFrees)

		assert.False(t, c.IsFull(), "IsFull folds pending frees in")
		s = c.Stats()
		assert.Equal(t, 1, s.KnownFreeSlots, "merge from IsFull persists")
		assert.Equal(t, 0, s.PendingFrees)
	})
}

func TestChan_CounterInvariant(t *testing.T) {
	const capacity = 5
	c := New[int](capacity)

	ops := []func(){
		func() { c.TrySend(1) },
		func() { c.TrySend(2) },
		func() { c.TryRecv() },
		func() { c.EstimateFreeSlots() },
		func() { c.TrySend(3) },
		func() { c.TrySend(4) },
		func() { c.TryRecv() },
		func() { c.TryRecv() },
		func() { c.TrySend(5) },
		func() { c.IsFull() },
		func() { c.TrySend(6) },
		func() { c.TrySend(7) },
		func() { c.TrySend(8) },
		func() { c.TryRecv() },
	}
	for i, op := range ops {
		op()
		s := c.Stats()
		assert.Equal(t, capacity-s.Len, s.FreeSlots(), "after op %d", i)
	}
	assert.Equal(t, capacity-c.Len(), c.ExactFreeSlots())
}

func TestChan_Peek(t *testing.T) {
	c := New[string](4)

	_, st := c.TryPeek()
	assert.Equal(t, Empty, st)

	c.Send("x")
	c.Send("y")

	v, st := c.TryPeek()
	assert.Equal(t, Received, st)
	assert.Equal(t, "x", v)

	v, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, 2, c.Len(), "peek does not dequeue")
	assert.Equal(t, 0, c.Stats().PendingFrees, "peek does not free a slot")

	v, _ = c.Recv()
	assert.Equal(t, "x", v)

	c.Close()
	v, st = c.TryPeek()
	assert.Equal(t, Received, st)
	assert.Equal(t, "y", v)

	_, _ = c.Recv()
	_, st = c.TryPeek()
	assert.Equal(t, Closed, st)
	_, ok = c.Peek()
	assert.False(t, ok)
}

func TestChan_Unget(t *testing.T) {
	c := New[string](1)
	c.Send("a")
	require.True(t, c.IsFull())

	c.Unget("z")
	assert.Equal(t, -1, c.Stats().KnownFreeSlots, "unget takes a slot past zero")
	assert.Equal(t, 2, c.Len())

	v, _ := c.Recv()
	assert.Equal(t, "z", v)
	v, _ = c.Recv()
	assert.Equal(t, "a", v)

	assert.Equal(t, 1, c.ExactFreeSlots())
	assert.Equal(t, int64(1), c.Stats().Ungot)
}

func TestChan_UngotItemsAreLIFO(t *testing.T) {
	c := New[int](5)
	c.Send(10)
	c.Unget(1)
	c.Unget(2)

	var got []int
	for range 3 {
		v, st := c.TryRecv()
		require.Equal(t, Received, st)
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 1, 10}, got)
}

func TestChan_UngetAfterCloseIsDropped(t *testing.T) {
	c := New[int](2)
	c.Close()
	c.Unget(1)
	c.Send(2)

	_, st := c.TryRecv()
	assert.Equal(t, Closed, st)
	s := c.Stats()
	assert.Equal(t, int64(2), s.Discarded)
	assert.Equal(t, int64(0), s.Ungot)
	assert.Equal(t, 2, s.KnownFreeSlots)
}

func TestChan_RequeueAfterClose(t *testing.T) {
	c := New[int](2)
	c.Send(1)
	c.Send(2)
	c.Close()

	v, ok := c.Recv()
	require.True(t, ok)
	c.Requeue(v)

	assert.Equal(t, 2, c.Len())
	s := c.Stats()
	assert.Equal(t, int64(0), s.Discarded)
	assert.Equal(t, int64(1), s.Ungot)

	var got []int
	for {
		v, ok := c.Recv()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestChan_RequeueWakesReader(t *testing.T) {
	c := New[int](1)
	d := c.Dup()

	got := make(chan int, 1)
	go func() {
		v, _ := d.Recv()
		got <- v
	}()
	time.Sleep(5 * time.Millisecond)
	d.Requeue(9)

	select {
	case v := <-got:
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("Requeue did not wake the reader")
	}
}

func TestChan_CloseSemantics(t *testing.T) {
	c := New[int](3)
	c.Send(1)
	c.Send(2)
	c.Close()
	c.Close()

	assert.True(t, c.IsClosed())
	assert.Equal(t, Discarded, c.TrySend(3))
	c.Send(4)

	v, st := c.TryRecv()
	assert.Equal(t, Received, st)
	assert.Equal(t, 1, v)
	v, ok := c.Recv()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, st = c.TryRecv()
	assert.Equal(t, Closed, st)
	_, ok = c.Recv()
	assert.False(t, ok)

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestChan_SendBlocksUntilSlotFrees(t *testing.T) {
	c := New[int](1)
	c.Send(1)

	sent := make(chan struct{})
	go func() {
		c.Send(2)
		close(sent)
	}()

	assert.Never(t, func() bool {
		select {
		case <-sent:
			return true
		default:
			return false
		}
	}, 30*time.Millisecond, 5*time.Millisecond, "Send must wait while full")

	v, _ := c.Recv()
	assert.Equal(t, 1, v)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after Recv")
	}
	v, _ = c.Recv()
	assert.Equal(t, 2, v)
}

func TestChan_RecvBlocksUntilSend(t *testing.T) {
	c := New[int](1)

	got := make(chan int, 1)
	go func() {
		v, _ := c.Recv()
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	c.Send(42)

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Send")
	}
}

func TestChan_PeekBlocksUntilSend(t *testing.T) {
	c := New[int](1)

	got := make(chan int, 1)
	go func() {
		v, _ := c.Peek()
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	c.Send(7)

	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("Peek did not unblock after Send")
	}
	assert.Equal(t, 1, c.Len())
}

func TestChan_CloseWakesBlockedCallers(t *testing.T) {
	full := New[int](0)
	empty := New[int](1)

	done := make(chan string, 3)
	go func() {
		full.Send(1)
		done <- "send"
	}()
	go func() {
		if _, ok := empty.Recv(); !ok {
			done <- "recv"
		}
	}()
	go func() {
		if _, ok := empty.Peek(); !ok {
			done <- "peek"
		}
	}()

	time.Sleep(10 * time.Millisecond)
	full.Close()
	empty.Close()

	var woke []string
	for range 3 {
		select {
		case w := <-done:
			woke = append(woke, w)
		case <-time.After(time.Second):
			t.Fatalf("only %v woke up after Close", woke)
		}
	}
	assert.ElementsMatch(t, []string{"send", "recv", "peek"}, woke)
	assert.Equal(t, int64(1), full.Stats().Discarded)
}

func TestChan_Dup(t *testing.T) {
	a := New[int](8)
	a.Send(1)
	v, _ := a.Recv()
	require.Equal(t, 1, v)
	a.Send(2) // queued on a before the duplicate exists

	b := a.Dup()
	assert.True(t, b.IsEmpty(), "duplicate does not see earlier writes")

	a.Send(3)
	b.Send(4)

	var fromA, fromB []int
	for {
		v, st := a.TryRecv()
		if st != Received {
			break
		}
		fromA = append(fromA, v)
	}
	for {
		v, st := b.TryRecv()
		if st != Received {
			break
		}
		fromB = append(fromB, v)
	}
	assert.Equal(t, []int{2, 3, 4}, fromA)
	assert.Equal(t, []int{3, 4}, fromB)

	a.Close()
	assert.True(t, b.IsClosed(), "closed flag is shared")
	_, st := b.TryRecv()
	assert.Equal(t, Closed, st)
	assert.Equal(t, int64(2), a.Stats().Handles)
}

func TestChan_DupDoesNotInheritPushedBack(t *testing.T) {
	a := New[int](4)
	a.Unget(5)
	b := a.Dup()
	assert.True(t, b.IsEmpty())
	assert.False(t, a.IsEmpty())
}

func TestChan_DupWakesEveryReader(t *testing.T) {
	a := New[int](4)
	b := a.Dup()

	got := make(chan int, 2)
	for _, h := range []*Chan[int]{a, b} {
		go func() {
			v, _ := h.Recv()
			got <- v
		}()
	}

	time.Sleep(10 * time.Millisecond)
	a.Send(99)

	for range 2 {
		select {
		case v := <-got:
			assert.Equal(t, 99, v)
		case <-time.After(time.Second):
			t.Fatal("a reader was not woken")
		}
	}
}

func TestChan_Clone(t *testing.T) {
	c := New[int](8)
	c.Send(1)
	c.Send(2)
	v, _ := c.Recv()
	require.Equal(t, 1, v)
	c.Unget(9)

	d := c.Clone()
	assert.Equal(t, c.Len(), d.Len())

	c.Send(3)
	for _, h := range []*Chan[int]{c, d} {
		var got []int
		for {
			v, st := h.TryRecv()
			if st != Received {
				break
			}
			got = append(got, v)
		}
		assert.Equal(t, []int{9, 2, 3}, got)
	}
}

func TestChan_LenAndCap(t *testing.T) {
	c := New[int](4, WithName("jobs"))
	assert.Equal(t, 4, c.Cap())
	assert.Equal(t, "jobs", c.Name())
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.IsEmpty())

	c.Send(1)
	c.Send(2)
	c.Unget(0)
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.IsEmpty())

	s := c.Stats()
	assert.Equal(t, "jobs", s.Name)
	assert.Equal(t, 4, s.Capacity)
	assert.Equal(t, int64(2), s.Sent)
}

func TestChan_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	c := New[int](1, WithName("events"), WithLogger(logger))
	c.Send(1)
	c.Unget(0)
	_ = c.Dup()
	c.Close()
	c.Send(2)

	out := buf.String()
	assert.Contains(t, out, `"channel":"events"`)
	assert.Contains(t, out, "write discarded on closed channel")
	assert.Contains(t, out, "unget beyond capacity")
	assert.Contains(t, out, "channel duplicated")
	assert.Contains(t, out, "channel closed")
}

func TestOptionsPanic(t *testing.T) {
	mustPanic(t, "WithName requires a non-empty name", func() {
		WithName("")
	})
	mustPanic(t, "WithLogger requires non-nil logger", func() {
		WithLogger(nil)
	})
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "received", Received.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", RecvState(42).String())
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "discarded", Discarded.String())
	assert.Equal(t, "unknown", SendState(-1).String())
}
