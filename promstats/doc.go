// Package promstats exports bchan channel and pool statistics to
// Prometheus.
//
// A [Collector] takes a snapshot of every registered source on each
// scrape, so nothing has to be updated from the hot path:
//
//	col := promstats.New("app")
//	col.AddChannel(jobs)          // any *bchan.Chan[T]
//	col.AddPool("workers", pool)  // *bchan.Pool
//	prometheus.MustRegister(col)
package promstats
