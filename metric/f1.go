package metric

import (
	"fmt"
	"slices"

	"gorgonia.org/tensor"
)

// F1Score is the harmonic mean of a Precision and a Recall scoped to the same
// class. The score is computed on every Update and stored; Result does not
// recompute it.
type F1Score struct {
	name      string
	precision *Precision
	recall    *Recall
	f1        float64
}

// NewF1Score returns an F1Score named "f1_score" for classID. Threshold and
// encoding options apply to both sub-metrics.
func NewF1Score(classID int, opts ...Option) *F1Score {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "f1_score"
	}
	sub := append(slices.Clone(opts), WithClassID(classID))
	return &F1Score{
		name:      o.name,
		precision: NewPrecision(append(sub, WithName("precision"))...),
		recall:    NewRecall(append(sub, WithName("recall"))...),
	}
}

// Name returns the reported name.
func (m *F1Score) Name() string { return m.name }

// Precision returns the owned precision sub-metric.
func (m *F1Score) Precision() *Precision { return m.precision }

// Recall returns the owned recall sub-metric.
func (m *F1Score) Recall() *Recall { return m.recall }

// Update feeds the batch to both sub-metrics and stores
// 2pr / (p + r), or 0 when p + r is 0.
func (m *F1Score) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	if err := m.precision.Update(yTrue, yPred, sampleWeight); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	if err := m.recall.Update(yTrue, yPred, sampleWeight); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	m.store()
	return nil
}

func (m *F1Score) store() {
	p := m.precision.Result()
	r := m.recall.Result()
	m.f1 = divideNoNaN(2*(p*r), p+r)
}

// Result returns the score as of the last Update.
func (m *F1Score) Result() float64 { return m.f1 }

// Reset clears both sub-metrics and the stored score.
func (m *F1Score) Reset() {
	m.precision.Reset()
	m.recall.Reset()
	m.f1 = 0
}

// Merge adds another F1Score's sub-metric counts and recomputes the score.
func (m *F1Score) Merge(other Metric) error {
	o, ok := other.(*F1Score)
	if !ok {
		return fmt.Errorf("%w: %T into *F1Score", ErrIncompatibleMerge, other)
	}
	if err := m.precision.Merge(o.precision); err != nil {
		return err
	}
	if err := m.recall.Merge(o.recall); err != nil {
		return err
	}
	m.store()
	return nil
}
