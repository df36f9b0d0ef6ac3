package promstats

import (
	"sort"
	"sync"

	"github.com/baxromumarov/bchan"
	"github.com/prometheus/client_golang/prometheus"
)

// ChannelSource is anything that reports channel statistics. Every
// *bchan.Chan[T] satisfies it.
type ChannelSource interface {
	Stats() bchan.Stats
}

// PoolSource is anything that reports pool statistics, such as
// *bchan.Pool.
type PoolSource interface {
	Stats() bchan.PoolStats
}

// Collector is a prometheus.Collector over a set of named channels and
// pools. It is safe for concurrent use.
type Collector struct {
	mu       sync.RWMutex
	channels map[string]ChannelSource
	pools    map[string]PoolSource

	capacity       *prometheus.Desc
	backlog        *prometheus.Desc
	knownFreeSlots *prometheus.Desc
	pendingFrees   *prometheus.Desc
	closed         *prometheus.Desc
	sent           *prometheus.Desc
	received       *prometheus.Desc
	rejected       *prometheus.Desc
	discarded      *prometheus.Desc
	ungot          *prometheus.Desc
	merges         *prometheus.Desc

	poolWorkers    *prometheus.Desc
	poolInFlight   *prometheus.Desc
	poolQueueDepth *prometheus.Desc
	poolSubmitted  *prometheus.Desc
	poolCompleted  *prometheus.Desc
	poolErrored    *prometheus.Desc
}

// New returns an empty collector whose metric names are prefixed with
// namespace and the "bchan" subsystem.
func New(namespace string) *Collector {
	ch := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "bchan", name), help, []string{"channel"}, nil)
	}
	pool := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "bchan", name), help, []string{"pool"}, nil)
	}
	return &Collector{
		channels: make(map[string]ChannelSource),
		pools:    make(map[string]PoolSource),

		capacity:       ch("capacity", "Configured channel capacity."),
		backlog:        ch("backlog", "Items waiting to be received on the registered handle."),
		knownFreeSlots: ch("known_free_slots", "Free slots known to writers."),
		pendingFrees:   ch("pending_frees", "Receives not yet folded into the writers' free slot count."),
		closed:         ch("closed", "1 if the channel is closed."),
		sent:           ch("sent_total", "Items accepted by the channel."),
		received:       ch("received_total", "Items received by any handle of the channel."),
		rejected:       ch("rejected_total", "Non-blocking sends rejected because the channel was full."),
		discarded:      ch("discarded_total", "Writes dropped because the channel was closed."),
		ungot:          ch("ungot_total", "Items pushed back to the head of the channel."),
		merges:         ch("merges_total", "Times pending frees were folded into the known free slots."),

		poolWorkers:    pool("pool_workers", "Worker goroutines of the pool."),
		poolInFlight:   pool("pool_in_flight", "Tasks currently executing."),
		poolQueueDepth: pool("pool_queue_depth", "Tasks waiting in the pool queue."),
		poolSubmitted:  pool("pool_submitted_total", "Tasks submitted to the pool."),
		poolCompleted:  pool("pool_completed_total", "Tasks finished, successfully or not."),
		poolErrored:    pool("pool_errored_total", "Tasks that returned an error or panicked."),
	}
}

// AddChannel registers src under the name reported by its Stats. A
// source already registered under that name is replaced.
func (c *Collector) AddChannel(src ChannelSource) {
	name := src.Stats().Name
	c.mu.Lock()
	c.channels[name] = src
	c.mu.Unlock()
}

// AddPool registers src under name, replacing any pool with that name.
func (c *Collector) AddPool(name string, src PoolSource) {
	c.mu.Lock()
	c.pools[name] = src
	c.mu.Unlock()
}

// Remove unregisters the channel and the pool called name, if any.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.channels, name)
	delete(c.pools, name)
	c.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.capacity, c.backlog, c.knownFreeSlots, c.pendingFrees, c.closed,
		c.sent, c.received, c.rejected, c.discarded, c.ungot, c.merges,
		c.poolWorkers, c.poolInFlight, c.poolQueueDepth,
		c.poolSubmitted, c.poolCompleted, c.poolErrored,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.channels) {
		s := c.channels[name].Stats()
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, name)
		}
		counter := func(d *prometheus.Desc, v int64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), name)
		}

		gauge(c.capacity, float64(s.Capacity))
		gauge(c.backlog, float64(s.Len))
		gauge(c.knownFreeSlots, float64(s.KnownFreeSlots))
		gauge(c.pendingFrees, float64(s.PendingFrees))
		closed := 0.0
		if s.Closed {
			closed = 1
		}
		gauge(c.closed, closed)

		counter(c.sent, s.Sent)
		counter(c.received, s.Received)
		counter(c.rejected, s.Rejected)
		counter(c.discarded, s.Discarded)
		counter(c.ungot, s.Ungot)
		counter(c.merges, s.Merges)
	}

	for _, name := range sortedKeys(c.pools) {
		s := c.pools[name].Stats()
		ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(s.Workers), name)
		ch <- prometheus.MustNewConstMetric(c.poolInFlight, prometheus.GaugeValue, float64(s.InFlight), name)
		ch <- prometheus.MustNewConstMetric(c.poolQueueDepth, prometheus.GaugeValue, float64(s.QueueDepth), name)
		ch <- prometheus.MustNewConstMetric(c.poolSubmitted, prometheus.CounterValue, float64(s.Submitted), name)
		ch <- prometheus.MustNewConstMetric(c.poolCompleted, prometheus.CounterValue, float64(s.Completed), name)
		ch <- prometheus.MustNewConstMetric(c.poolErrored, prometheus.CounterValue, float64(s.Errored), name)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
