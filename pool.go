package bchan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned by [Pool.Submit] when the pool has been closed.
var ErrPoolClosed = errors.New("bchan: pool is closed")

// Pool is a reusable worker pool. Tasks are queued on a bounded [Chan]
// and processed by a fixed number of worker goroutines, so a full queue
// pushes back on submitters and Close drains what is already queued.
type Pool struct {
	tasks  *Chan[func() error]
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    logrus.FieldLogger
	name   string

	metricsDone chan struct{} // nil without WithPoolMetrics

	errMu sync.Mutex
	errs  []error

	// Observability counters.
	submitted atomic.Int64
	completed atomic.Int64
	errored   atomic.Int64
	inFlight  atomic.Int64
	started   atomic.Int64
	workers   int
}

// PoolStats provides a point-in-time snapshot of pool activity.
type PoolStats struct {
	Submitted  int64 // total tasks submitted
	Completed  int64 // tasks finished (success + error)
	Errored    int64 // tasks that returned non-nil error
	InFlight   int64 // tasks currently executing
	QueueDepth int   // tasks waiting in the queue
	Workers    int   // worker count (fixed at creation)
}

// PoolOption configures a [Pool].
type PoolOption func(*poolConfig)

type poolConfig struct {
	queueSize       int
	name            string
	logger          logrus.FieldLogger
	onMetrics       func(PoolStats)
	metricsInterval time.Duration
}

// WithQueueSize sets the task queue capacity. Default is n * 2.
// Panics if size <= 0: a queue without capacity never accepts a task.
func WithQueueSize(size int) PoolOption {
	if size <= 0 {
		panic("bchan: WithQueueSize requires size > 0")
	}
	return func(c *poolConfig) {
		c.queueSize = size
	}
}

// WithPoolName names the pool's task queue, see [WithName].
func WithPoolName(name string) PoolOption {
	if name == "" {
		panic("bchan: WithPoolName requires a non-empty name")
	}
	return func(c *poolConfig) {
		c.name = name
	}
}

// WithPoolLogger sets the logger for task failures and the task queue.
// Panics if l is nil.
func WithPoolLogger(l logrus.FieldLogger) PoolOption {
	if l == nil {
		panic("bchan: WithPoolLogger requires non-nil logger")
	}
	return func(c *poolConfig) {
		c.logger = l
	}
}

// WithPoolMetrics registers a periodic pool metrics callback that fires
// every interval. The callback receives a snapshot of current pool counters.
//
// Panics if interval <= 0 or fn is nil.
func WithPoolMetrics(interval time.Duration, fn func(PoolStats)) PoolOption {
	if interval <= 0 {
		panic("bchan: WithPoolMetrics requires interval > 0")
	}
	if fn == nil {
		panic("bchan: WithPoolMetrics requires non-nil callback")
	}
	return func(c *poolConfig) {
		c.onMetrics = fn
		c.metricsInterval = interval
	}
}

// NewPool creates a pool with n worker goroutines.
// Workers start immediately and process tasks until [Pool.Close] is called.
// Panics if n <= 0.
func NewPool(
	ctx context.Context,
	n int,
	opts ...PoolOption,
) *Pool {
	if n <= 0 {
		panic("bchan: NewPool requires n > 0")
	}

	cfg := poolConfig{
		queueSize: n * 2,
		name:      "pool",
		logger:    discardLogger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		tasks: New[func() error](
			cfg.queueSize,
			WithName(cfg.name),
			WithLogger(cfg.logger),
		),
		ctx:     ctx,
		cancel:  cancel,
		log:     cfg.logger.WithField("pool", cfg.name),
		name:    cfg.name,
		workers: n,
	}

	p.wg.Add(n)
	for range n {
		go p.worker()
	}

	// The ticker outlives the queue: it keeps reporting while Close drains
	// and sends one last snapshot once the pool context ends.
	if cfg.onMetrics != nil {
		p.metricsDone = make(chan struct{})
		go func() {
			defer close(p.metricsDone)
			ticker := time.NewTicker(cfg.metricsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					cfg.onMetrics(p.Stats())
				case <-ctx.Done():
					cfg.onMetrics(p.Stats())
					return
				}
			}
		}()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		fn, ok := p.tasks.Recv()
		if !ok {
			return
		}
		p.runTask(fn)
	}
}

func (p *Pool) runTask(fn func() error) {
	seq := p.started.Add(1)
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.completed.Add(1)
	}()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = newPanicError(r)
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}

	p.errored.Add(1)
	log := p.log.WithField("task", seq)
	if pe, ok := err.(*PanicError); ok {
		log.WithField("panic", pe.Value).Error("task panicked")
	} else {
		log.WithError(err).Warn("task failed")
	}
	p.errMu.Lock()
	p.errs = append(p.errs, &TaskError{Pool: p.name, Seq: seq, Err: err})
	p.errMu.Unlock()
}

// Stats returns a point-in-time snapshot of pool activity.
// Safe to call concurrently.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Errored:    p.errored.Load(),
		InFlight:   p.inFlight.Load(),
		QueueDepth: p.tasks.Len(),
		Workers:    p.workers,
	}
}

// Queue returns the pool's task queue, e.g. for [Chan.Stats].
func (p *Pool) Queue() *Chan[func() error] {
	return p.tasks
}

// Submit submits a task to the pool. It blocks while the queue is full.
// Returns [ErrPoolClosed] if the pool has been closed.
// Returns ctx.Err() if the pool's context is cancelled; the task is then
// not queued.
func (p *Pool) Submit(fn func() error) error {
	ok, err := p.tasks.SendContext(p.ctx, fn)
	if !ok && p.tasks.IsClosed() {
		// Close also cancels p.ctx, so err alone cannot tell the two apart.
		return ErrPoolClosed
	}
	if err != nil {
		return err
	}
	p.submitted.Add(1)
	return nil
}

// TrySubmit attempts to submit without blocking.
// Returns false if the queue is full or the pool is closed.
func (p *Pool) TrySubmit(fn func() error) bool {
	if p.tasks.TrySend(fn) != Accepted {
		return false
	}
	p.submitted.Add(1)
	return true
}

// Close stops accepting new tasks and waits for the workers to run every
// task already queued. With [WithPoolMetrics], the callback receives a
// final snapshot before Close returns. Returns the failed tasks' errors, each wrapped in a
// [*TaskError], joined with [errors.Join].
// Safe to call multiple times; subsequent calls return the same result.
func (p *Pool) Close() error {
	p.tasks.Close()
	p.wg.Wait()
	p.cancel()
	if p.metricsDone != nil {
		<-p.metricsDone
	}

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}
