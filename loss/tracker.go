package loss

import (
	"fmt"

	"github.com/jamesainslie/go-segmetrics/metric"
	"gorgonia.org/tensor"
)

// Tracker reports a Loss as a metric: the running mean of batch losses,
// weighted by batch size.
type Tracker struct {
	loss  Loss
	total float64
	count float64
}

var (
	_ metric.Metric = (*Tracker)(nil)
	_ metric.Merger = (*Tracker)(nil)
)

// NewTracker wraps l.
func NewTracker(l Loss) *Tracker {
	return &Tracker{loss: l}
}

// Name returns the wrapped loss's name.
func (t *Tracker) Name() string { return t.loss.Name() }

// Update computes the batch loss and folds it into the running mean.
func (t *Tracker) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	v, err := t.loss.Compute(yTrue, yPred, sampleWeight)
	if err != nil {
		return err
	}

	_, shape, err := metric.Values(yTrue)
	if err != nil {
		return err
	}
	batch := 1
	if len(shape) > 0 {
		batch = shape[0]
	}

	t.total += v * float64(batch)
	t.count += float64(batch)
	return nil
}

// Result returns the mean loss so far, 0 before any update.
func (t *Tracker) Result() float64 {
	if t.count == 0 {
		return 0
	}
	return t.total / t.count
}

// Reset clears the running mean.
func (t *Tracker) Reset() {
	t.total = 0
	t.count = 0
}

// Merge adds another Tracker's totals for the same loss name.
func (t *Tracker) Merge(other metric.Metric) error {
	o, ok := other.(*Tracker)
	if !ok || o.Name() != t.Name() {
		return fmt.Errorf("%w: %s into %s", metric.ErrIncompatibleMerge, other.Name(), t.Name())
	}
	t.total += o.total
	t.count += o.count
	return nil
}
