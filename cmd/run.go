package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/baxromumarov/bchan"
	"github.com/baxromumarov/bchan/chanx"
	"github.com/baxromumarov/bchan/promstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type options struct {
	capacity    int
	producers   int
	consumers   int
	items       int
	broadcast   int
	logLevel    string
	metricsAddr string
	hold        time.Duration
}

func defaultOptions() options {
	return options{
		capacity:  16,
		producers: 4,
		consumers: 2,
		items:     1000,
		logLevel:  "info",
	}
}

func (o options) validate() error {
	switch {
	case o.capacity <= 0:
		return errors.New("--capacity must be positive")
	case o.producers <= 0:
		return errors.New("--producers must be positive")
	case o.consumers <= 0:
		return errors.New("--consumers must be positive")
	case o.items < 0:
		return errors.New("--items must not be negative")
	case o.broadcast < 0:
		return errors.New("--broadcast must not be negative")
	}
	return nil
}

type summary struct {
	stats       bchan.Stats
	consumed    []int
	audited     []int
	duration    time.Duration
	interrupted bool
}

func (s summary) total() int {
	n := 0
	for _, c := range s.consumed {
		n += c
	}
	return n
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "channel %q capacity=%d closed=%t\n", s.stats.Name, s.stats.Capacity, s.stats.Closed)
	fmt.Fprintf(w, "  sent=%d received=%d discarded=%d merges=%d\n",
		s.stats.Sent, s.stats.Received, s.stats.Discarded, s.stats.Merges)
	for i, n := range s.consumed {
		fmt.Fprintf(w, "  consumer %d: %d items\n", i, n)
	}
	fmt.Fprintf(w, "  consumed %d items in %s\n", s.total(), s.duration.Round(time.Millisecond))
	for i, n := range s.audited {
		fmt.Fprintf(w, "  broadcast reader %d: %d items\n", i, n)
	}
	if s.interrupted {
		fmt.Fprintln(w, "  interrupted before all items were sent")
	}
}

// run sends o.producers*o.items values through one channel. Consumers
// share the producers' handle; each broadcast reader is a duplicate that
// sees every value and checks per-producer order.
func run(ctx context.Context, o options, log logrus.FieldLogger) (summary, error) {
	c := bchan.New[int](o.capacity, bchan.WithName("items"), bchan.WithLogger(log))
	var audit []*bchan.Chan[int]
	if o.broadcast > 0 {
		audit = chanx.Broadcast(c, o.broadcast)
	}

	if o.metricsAddr != "" {
		addr, shutdown, err := serveMetrics(o.metricsAddr, c, log)
		if err != nil {
			return summary{}, err
		}
		log.WithField("addr", addr).Info("serving metrics")
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.WithError(err).Warn("metrics server shutdown")
			}
		}()
	}

	sum := summary{
		consumed: make([]int, o.consumers),
		audited:  make([]int, len(audit)),
	}
	start := time.Now()

	var readers errgroup.Group
	for i := range o.consumers {
		readers.Go(func() error {
			for {
				if _, ok := c.Recv(); !ok {
					return nil
				}
				sum.consumed[i]++
			}
		})
	}
	for i, h := range audit {
		readers.Go(func() error {
			n, err := auditOrder(h, o.items)
			sum.audited[i] = n
			return err
		})
	}

	var producers errgroup.Group
	for p := range o.producers {
		producers.Go(func() error {
			for i := range o.items {
				if _, err := c.SendContext(ctx, p*o.items+i); err != nil {
					return err
				}
			}
			log.WithField("producer", p).Debug("producer done")
			return nil
		})
	}

	perr := producers.Wait()
	c.Close()
	rerr := readers.Wait()
	sum.duration = time.Since(start)
	sum.stats = c.Stats()

	switch {
	case rerr != nil:
		return sum, rerr
	case errors.Is(perr, context.Canceled):
		sum.interrupted = true
	case perr != nil:
		return sum, perr
	}

	log.WithFields(logrus.Fields{
		"sent":     sum.stats.Sent,
		"consumed": sum.total(),
		"duration": sum.duration,
	}).Info("pipeline finished")

	if o.metricsAddr != "" && o.hold > 0 && !sum.interrupted {
		select {
		case <-time.After(o.hold):
		case <-ctx.Done():
		}
	}
	return sum, nil
}

// auditOrder drains h and fails if values from one producer arrive out
// of order.
func auditOrder(h *bchan.Chan[int], perProducer int) (int, error) {
	last := map[int]int{}
	n := 0
	for {
		v, ok := h.Recv()
		if !ok {
			return n, nil
		}
		n++
		p := v / max(perProducer, 1)
		if prev, seen := last[p]; seen && prev >= v {
			return n, fmt.Errorf("producer %d: %d received after %d", p, v, prev)
		}
		last[p] = v
	}
}

// serveMetrics starts a /metrics endpoint for src and returns the bound
// address and a shutdown function.
func serveMetrics(addr string, src promstats.ChannelSource, log logrus.FieldLogger) (string, func(context.Context) error, error) {
	col := promstats.New("demo")
	col.AddChannel(src)
	reg := prometheus.NewRegistry()
	if err := reg.Register(col); err != nil {
		return "", nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return ln.Addr().String(), srv.Shutdown, nil
}
