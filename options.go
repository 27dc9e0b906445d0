package defender

import (
	"github.com/rs/zerolog"

	"github.com/reoring/defender/clock"
	"github.com/reoring/defender/events"
	"github.com/reoring/defender/idgen"
)

// Option configures a Registry or a Schema.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	tokens idgen.Generator
	clock  clock.Clock
}

func defaultOptions() options {
	return options{
		logger: zerolog.Nop(),
		tokens: idgen.UUID{},
		clock:  clock.Real{},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger for definition, lock and notification activity.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenGenerator replaces the generator used for unique token properties.
// nil values are ignored.
func WithTokenGenerator(g idgen.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.tokens = g
		}
	}
}

// WithClock replaces the time source used to refresh timestamp properties.
// nil values are ignored.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Notifier receives the notifications published by a Data.
type Notifier interface {
	Notify(e events.Event)
}

// LoadOption configures the Data produced by Schema.Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	notifiers []Notifier
	handlers  []subscription
}

type subscription struct {
	event   string
	handler events.Handler
}

// WithNotifier forwards every notification of the loaded Data to n, starting
// with its initial load event.
func WithNotifier(n Notifier) LoadOption {
	return func(o *loadOptions) {
		if n != nil {
			o.notifiers = append(o.notifiers, n)
		}
	}
}

// WithHandler subscribes h to event on the loaded Data before its initial
// values are applied, so it observes the initial load event.
func WithHandler(event string, h events.Handler) LoadOption {
	return func(o *loadOptions) {
		o.handlers = append(o.handlers, subscription{event: event, handler: h})
	}
}
