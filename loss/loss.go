// Package loss provides training losses over gorgonia tensors.
package loss

import (
	"fmt"

	"github.com/jamesainslie/go-segmetrics/metric"
	"gorgonia.org/tensor"
)

// Loss defines the interface for computing a batch loss and its gradient.
type Loss interface {
	// Name returns the name the loss is reported under.
	Name() string
	// Compute returns the reduced loss for one batch. sampleWeight may be nil.
	Compute(yTrue, yPred, sampleWeight tensor.Tensor) (float64, error)
	// Gradient returns ∂L/∂y_pred for each element of y_pred, unweighted.
	Gradient(yTrue, yPred tensor.Tensor) ([]float64, error)
}

// MeanSquaredError averages squared differences over the trailing axis, then
// reduces per-sample losses by sum over batch size.
type MeanSquaredError struct {
	name string
}

// NewMeanSquaredError returns a MeanSquaredError with the given name, or
// "mean_squared_error" when name is empty.
func NewMeanSquaredError(name string) *MeanSquaredError {
	if name == "" {
		name = "mean_squared_error"
	}
	return &MeanSquaredError{name: name}
}

// Name returns the reported name.
func (l *MeanSquaredError) Name() string { return l.name }

// Compute returns sum_i(w_i * mean_j((y_true - y_pred)^2)) / rows.
func (l *MeanSquaredError) Compute(yTrue, yPred, sampleWeight tensor.Tensor) (float64, error) {
	t, p, last, err := readPair(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if last == 0 {
		return 0, nil
	}

	rows := len(t) / last
	w, err := metric.SampleWeights(sampleWeight, rows)
	if err != nil {
		return 0, err
	}

	var total float64
	for r := range rows {
		var sq float64
		for j := r * last; j < (r+1)*last; j++ {
			d := t[j] - p[j]
			sq += d * d
		}
		wr := 1.0
		if w != nil {
			wr = w[r]
		}
		total += wr * sq / float64(last)
	}

	if rows == 0 {
		return 0, nil
	}
	return total / float64(rows), nil
}

// Gradient returns 2 * (y_pred - y_true) / (rows * last) for each element.
func (l *MeanSquaredError) Gradient(yTrue, yPred tensor.Tensor) ([]float64, error) {
	t, p, _, err := readPair(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	grad := make([]float64, len(p))
	if len(p) == 0 {
		return grad, nil
	}
	scale := 2 / float64(len(p))
	for i := range p {
		grad[i] = scale * (p[i] - t[i])
	}
	return grad, nil
}

// readPair reads both tensors and returns the trailing axis size.
func readPair(yTrue, yPred tensor.Tensor) (t, p []float64, last int, err error) {
	t, ts, err := metric.Values(yTrue)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("y_true: %w", err)
	}
	p, ps, err := metric.Values(yPred)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("y_pred: %w", err)
	}
	if len(t) != len(p) {
		return nil, nil, 0, fmt.Errorf("%w: y_true %v, y_pred %v", metric.ErrShapeMismatch, ts, ps)
	}

	last = 1
	if len(ps) > 0 {
		last = ps[len(ps)-1]
	}
	return t, p, last, nil
}
