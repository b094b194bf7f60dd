package custodian

import (
	"github.com/raulk/clock"

	"github.com/bft-labs/custodian/internal/adapters/authority"
	logadapter "github.com/bft-labs/custodian/internal/adapters/log"
	"github.com/bft-labs/custodian/internal/app"
	"github.com/bft-labs/custodian/internal/ports"
)

// Option configures optional behavior of a Manager.
type Option func(*options)

type options struct {
	namespace    string
	clock        clock.Clock
	verifier     ports.AuthorityVerifier
	executor     ports.ExecutorChannel
	logger       ports.Logger
	eventHandler app.CustodyEventEmitter
}

func defaultOptions() options {
	return options{
		namespace: app.DefaultNamespace,
		verifier:  authority.Owner{},
		logger:    logadapter.NewNoopLogger(),
	}
}

// WithNamespace sets the namespace mixed into derived record addresses.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithClock sets the clock used for delegation and commit timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithVerifier replaces the record-owner verifier.
func WithVerifier(v AuthorityVerifier) Option {
	return func(o *options) {
		o.verifier = v
	}
}

// WithExecutorChannel sets how committed values are read from the executor.
func WithExecutorChannel(ch ExecutorChannel) Option {
	return func(o *options) {
		o.executor = ch
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for custody events.
// Handlers are called synchronously after the record is written.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}
