package metric

import (
	"fmt"

	"gorgonia.org/tensor"
)

// mean is a weighted running mean shared by the accuracy metrics.
type mean struct {
	name  string
	total float64
	count float64
}

func (m *mean) add(v, w float64) {
	m.total += v * w
	m.count += w
}

// Name returns the reported name.
func (m *mean) Name() string { return m.name }

// Result returns the weighted mean, or 0 before any weighted update.
func (m *mean) Result() float64 { return divideNoNaN(m.total, m.count) }

// Reset clears the running totals.
func (m *mean) Reset() {
	m.total = 0
	m.count = 0
}

func (m *mean) absorb(o *mean) {
	m.total += o.total
	m.count += o.count
}

// addMatches adds one observation per pair of labels.
func (m *mean) addMatches(truth, pred []int, w []float64) {
	for i := range truth {
		hit := 0.0
		if truth[i] == pred[i] {
			hit = 1
		}
		m.add(hit, weightAt(w, i))
	}
}

// Accuracy is the weighted fraction of elements where y_pred equals y_true.
type Accuracy struct {
	mean
}

// NewAccuracy returns an Accuracy named "accuracy".
func NewAccuracy(opts ...Option) *Accuracy {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "accuracy"
	}
	return &Accuracy{mean: mean{name: o.name}}
}

// Update compares y_true and y_pred elementwise.
func (a *Accuracy) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	t, p, err := readPair(yTrue, yPred)
	if err != nil {
		return err
	}
	if len(t.data) != len(p.data) {
		return fmt.Errorf("%w: y_true %v, y_pred %v", ErrShapeMismatch, t.shape, p.shape)
	}

	w, err := weights(sampleWeight, len(t.data))
	if err != nil {
		return err
	}

	for i := range t.data {
		hit := 0.0
		if t.data[i] == p.data[i] {
			hit = 1
		}
		a.add(hit, weightAt(w, i))
	}
	return nil
}

// Merge adds another Accuracy's totals.
func (a *Accuracy) Merge(other Metric) error {
	o, ok := other.(*Accuracy)
	if !ok {
		return fmt.Errorf("%w: %T into *Accuracy", ErrIncompatibleMerge, other)
	}
	a.absorb(&o.mean)
	return nil
}

// CategoricalAccuracy compares argmax over the trailing axis of one-hot
// y_true and scored y_pred.
type CategoricalAccuracy struct {
	mean
}

// NewCategoricalAccuracy returns a CategoricalAccuracy named
// "categorical_accuracy".
func NewCategoricalAccuracy(opts ...Option) *CategoricalAccuracy {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "categorical_accuracy"
	}
	return &CategoricalAccuracy{mean: mean{name: o.name}}
}

// Update accumulates one observation per trailing-axis vector.
func (a *CategoricalAccuracy) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	t, p, err := readPair(yTrue, yPred)
	if err != nil {
		return err
	}
	if t.last() != p.last() || t.rows() != p.rows() {
		return fmt.Errorf("%w: y_true %v, y_pred %v", ErrShapeMismatch, t.shape, p.shape)
	}

	w, err := weights(sampleWeight, t.rows())
	if err != nil {
		return err
	}

	a.addMatches(t.argmax(), p.argmax(), w)
	return nil
}

// Merge adds another CategoricalAccuracy's totals.
func (a *CategoricalAccuracy) Merge(other Metric) error {
	o, ok := other.(*CategoricalAccuracy)
	if !ok {
		return fmt.Errorf("%w: %T into *CategoricalAccuracy", ErrIncompatibleMerge, other)
	}
	a.absorb(&o.mean)
	return nil
}

// SparseCategoricalAccuracy compares y_true class indices with the argmax of
// y_pred over its trailing axis.
type SparseCategoricalAccuracy struct {
	mean
}

// NewSparseCategoricalAccuracy returns a SparseCategoricalAccuracy named
// "sparse_categorical_accuracy".
func NewSparseCategoricalAccuracy(opts ...Option) *SparseCategoricalAccuracy {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "sparse_categorical_accuracy"
	}
	return &SparseCategoricalAccuracy{mean: mean{name: o.name}}
}

// Update accumulates one observation per y_true index. y_true may carry a
// trailing axis of size 1.
func (a *SparseCategoricalAccuracy) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	t, p, err := readPair(yTrue, yPred)
	if err != nil {
		return err
	}
	if len(t.data) != p.rows() {
		return fmt.Errorf("%w: y_true %v, y_pred %v", ErrShapeMismatch, t.shape, p.shape)
	}

	w, err := weights(sampleWeight, len(t.data))
	if err != nil {
		return err
	}

	a.addMatches(t.indices(), p.argmax(), w)
	return nil
}

// Merge adds another SparseCategoricalAccuracy's totals.
func (a *SparseCategoricalAccuracy) Merge(other Metric) error {
	o, ok := other.(*SparseCategoricalAccuracy)
	if !ok {
		return fmt.Errorf("%w: %T into *SparseCategoricalAccuracy", ErrIncompatibleMerge, other)
	}
	a.absorb(&o.mean)
	return nil
}

func readPair(yTrue, yPred tensor.Tensor) (flat, flat, error) {
	t, err := read(yTrue)
	if err != nil {
		return flat{}, flat{}, fmt.Errorf("y_true: %w", err)
	}
	p, err := read(yPred)
	if err != nil {
		return flat{}, flat{}, fmt.Errorf("y_pred: %w", err)
	}
	return t, p, nil
}
