package metric

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// Set is an ordered group of metrics updated together, typically the
// metrics of one worker.
type Set []Metric

// Names returns the metric names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name()
	}
	return names
}

// Update feeds one batch to every metric. All metrics are attempted; the
// returned error joins every failure.
func (s Set) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	var errs []error
	for _, m := range s {
		if err := m.Update(yTrue, yPred, sampleWeight); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Results returns each metric's current value keyed by name.
func (s Set) Results() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Result()
	}
	return out
}

// Reset resets every metric.
func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Merge folds other into s position by position. Both sets must hold the
// same metrics in the same order, and every metric must implement Merger.
func (s Set) Merge(other Set) error {
	if len(other) != len(s) {
		return fmt.Errorf("%w: %d metrics into %d", ErrIncompatibleMerge, len(other), len(s))
	}
	for i, m := range s {
		if other[i].Name() != m.Name() {
			return fmt.Errorf("%w: %s into %s", ErrIncompatibleMerge, other[i].Name(), m.Name())
		}
		mg, ok := m.(Merger)
		if !ok {
			return fmt.Errorf("%w: %s cannot merge", ErrIncompatibleMerge, m.Name())
		}
		if err := mg.Merge(other[i]); err != nil {
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
	}
	return nil
}
