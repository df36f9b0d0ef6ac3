package bchan

import (
	"io"

	"github.com/sirupsen/logrus"
)

type config struct {
	name   string
	logger logrus.FieldLogger
}

// Option configures a [Chan] created by [New].
type Option func(*config)

var discardLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func defaultConfig() config {
	return config{
		name:   "bchan",
		logger: discardLogger,
	}
}

// WithName sets the name reported by [Chan.Name], [Chan.Stats] and the
// "channel" log field. It panics if name is empty.
func WithName(name string) Option {
	if name == "" {
		panic("bchan: WithName requires a non-empty name")
	}
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger used for lifecycle events: close, duplicate,
// clone, writes discarded after close and unget beyond capacity. Events are
// logged at Debug level. The default logger discards everything.
//
// It panics if l is nil.
func WithLogger(l logrus.FieldLogger) Option {
	if l == nil {
		panic("bchan: WithLogger requires non-nil logger")
	}
	return func(c *config) {
		c.logger = l
	}
}
