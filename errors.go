package segmetrics

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrUnknownMetric indicates no metric factory is registered under a name.
	ErrUnknownMetric = errors.New("segmetrics: unknown metric")

	// ErrUnknownLoss indicates no loss factory is registered under a name.
	ErrUnknownLoss = errors.New("segmetrics: unknown loss")

	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("segmetrics: invalid config")
)
