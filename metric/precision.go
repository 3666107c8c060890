package metric

import (
	"fmt"

	"gorgonia.org/tensor"
)

// counts holds weighted binary confusion counts for one class.
type counts struct {
	classID   int
	threshold float64
	encoding  Encoding

	TruePositives  float64
	FalsePositives float64
	FalseNegatives float64
	TrueNegatives  float64
}

func newCounts(o options) counts {
	return counts{
		classID:   o.classID,
		threshold: o.threshold,
		encoding:  o.encoding,
	}
}

func (c *counts) update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	t, p, err := readPair(yTrue, yPred)
	if err != nil {
		return err
	}

	enc := c.resolve(t)
	truth, err := c.truthPositives(t, enc)
	if err != nil {
		return fmt.Errorf("y_true: %w", err)
	}
	pred, err := c.predPositives(p, enc, len(truth))
	if err != nil {
		return fmt.Errorf("y_pred: %w", err)
	}

	w, err := weights(sampleWeight, len(truth))
	if err != nil {
		return err
	}

	for i := range truth {
		wi := weightAt(w, i)
		switch {
		case truth[i] && pred[i]:
			c.TruePositives += wi
		case !truth[i] && pred[i]:
			c.FalsePositives += wi
		case truth[i] && !pred[i]:
			c.FalseNegatives += wi
		default:
			c.TrueNegatives += wi
		}
	}
	return nil
}

// resolve picks the encoding for a batch from y_true's rank.
func (c *counts) resolve(t flat) Encoding {
	if c.encoding != EncodingAuto {
		return c.encoding
	}
	if len(t.shape) <= 1 {
		return EncodingSparse
	}
	return EncodingOneHot
}

func (c *counts) truthPositives(t flat, enc Encoding) ([]bool, error) {
	if c.classID == NoClass {
		return mapBool(t.data, func(v float64) bool { return v != 0 }), nil
	}
	if enc == EncodingSparse {
		return c.isClass(t.data), nil
	}
	col, err := t.column(c.classID)
	if err != nil {
		return nil, err
	}
	return mapBool(col, func(v float64) bool { return v != 0 }), nil
}

func (c *counts) predPositives(p flat, enc Encoding, n int) ([]bool, error) {
	above := func(v float64) bool { return v > c.threshold }

	if c.classID == NoClass {
		if len(p.data) != n {
			return nil, fmt.Errorf("%w: %d predictions for %d labels", ErrShapeMismatch, len(p.data), n)
		}
		return mapBool(p.data, above), nil
	}

	// Sparse predictions hold class indices; anything else is scored
	// per class over the trailing axis.
	if enc == EncodingSparse && len(p.data) == n {
		return c.isClass(p.data), nil
	}
	if p.rows() != n {
		return nil, fmt.Errorf("%w: %d prediction rows for %d labels", ErrShapeMismatch, p.rows(), n)
	}
	col, err := p.column(c.classID)
	if err != nil {
		return nil, err
	}
	return mapBool(col, above), nil
}

func (c *counts) isClass(data []float64) []bool {
	return mapBool(data, func(v float64) bool { return int(v) == c.classID })
}

func (c *counts) reset() {
	c.TruePositives = 0
	c.FalsePositives = 0
	c.FalseNegatives = 0
	c.TrueNegatives = 0
}

func (c *counts) absorb(o *counts) error {
	if o.classID != c.classID || o.threshold != c.threshold {
		return fmt.Errorf("%w: class %d threshold %g vs class %d threshold %g",
			ErrIncompatibleMerge, c.classID, c.threshold, o.classID, o.threshold)
	}
	c.TruePositives += o.TruePositives
	c.FalsePositives += o.FalsePositives
	c.FalseNegatives += o.FalseNegatives
	c.TrueNegatives += o.TrueNegatives
	return nil
}

func mapBool(in []float64, fn func(float64) bool) []bool {
	out := make([]bool, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// Precision is tp / (tp + fp) over thresholded predictions, optionally
// scoped to one class.
type Precision struct {
	name string
	counts
}

// NewPrecision returns a Precision named "precision".
func NewPrecision(opts ...Option) *Precision {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "precision"
	}
	return &Precision{name: o.name, counts: newCounts(o)}
}

// Name returns the reported name.
func (m *Precision) Name() string { return m.name }

// ClassID returns the scoped class, or NoClass.
func (m *Precision) ClassID() int { return m.classID }

// Update accumulates one batch.
func (m *Precision) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	return m.update(yTrue, yPred, sampleWeight)
}

// Result returns the running precision, 0 when nothing was predicted positive.
func (m *Precision) Result() float64 {
	return divideNoNaN(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Reset clears the counts.
func (m *Precision) Reset() { m.reset() }

// Merge adds another Precision's counts.
func (m *Precision) Merge(other Metric) error {
	o, ok := other.(*Precision)
	if !ok {
		return fmt.Errorf("%w: %T into *Precision", ErrIncompatibleMerge, other)
	}
	return m.absorb(&o.counts)
}

// Recall is tp / (tp + fn) over thresholded predictions, optionally scoped
// to one class.
type Recall struct {
	name string
	counts
}

// NewRecall returns a Recall named "recall".
func NewRecall(opts ...Option) *Recall {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "recall"
	}
	return &Recall{name: o.name, counts: newCounts(o)}
}

// Name returns the reported name.
func (m *Recall) Name() string { return m.name }

// ClassID returns the scoped class, or NoClass.
func (m *Recall) ClassID() int { return m.classID }

// Update accumulates one batch.
func (m *Recall) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	return m.update(yTrue, yPred, sampleWeight)
}

// Result returns the running recall, 0 when no positives were labeled.
func (m *Recall) Result() float64 {
	return divideNoNaN(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

// Reset clears the counts.
func (m *Recall) Reset() { m.reset() }

// Merge adds another Recall's counts.
func (m *Recall) Merge(other Metric) error {
	o, ok := other.(*Recall)
	if !ok {
		return fmt.Errorf("%w: %T into *Recall", ErrIncompatibleMerge, other)
	}
	return m.absorb(&o.counts)
}
