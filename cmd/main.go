// Command bchan-demo runs a producer/consumer pipeline over a bounded
// channel and prints what the channel saw.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(log).ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("bchan-demo failed")
		os.Exit(1)
	}
}

func newRootCommand(log *logrus.Logger) *cobra.Command {
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:           "bchan-demo",
		Short:         "Run a producer/consumer pipeline over a bounded channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			if err := opts.validate(); err != nil {
				return err
			}

			sum, err := run(cmd.Context(), opts, log)
			if err != nil {
				return err
			}
			sum.print(cmd.OutOrStdout())
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.capacity, "capacity", opts.capacity, "channel capacity")
	f.IntVar(&opts.producers, "producers", opts.producers, "number of producer goroutines")
	f.IntVar(&opts.consumers, "consumers", opts.consumers, "number of consumer goroutines")
	f.IntVar(&opts.items, "items", opts.items, "items sent by each producer")
	f.IntVar(&opts.broadcast, "broadcast", opts.broadcast, "extra duplicate readers that see every item")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: trace|debug|info|warn|error")
	f.StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	f.DurationVar(&opts.hold, "hold", opts.hold, "keep serving metrics this long after the pipeline finishes")
	return cmd
}
