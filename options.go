package segmetrics

import (
	"log/slog"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	skipDefault bool
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithoutDefaults creates an empty registry instead of one preloaded with
// the built-in factories.
func WithoutDefaults() Option {
	return func(o *options) {
		o.skipDefault = true
	}
}
