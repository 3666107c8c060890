// Package metric provides streaming evaluation metrics for segmentation models.
//
// A Metric accumulates statistics across Update calls and reports an
// aggregate through Result. Instances are not safe for concurrent use; give
// each worker its own instances and combine them with Merge.
package metric

import (
	"errors"

	"gorgonia.org/tensor"
)

// Sentinel errors returned (wrapped) by Update and Merge.
var (
	// ErrShapeMismatch indicates y_true, y_pred or sample weights disagree in size.
	ErrShapeMismatch = errors.New("metric: shape mismatch")

	// ErrClassOutOfRange indicates a class index outside [0, numClasses).
	ErrClassOutOfRange = errors.New("metric: class index out of range")

	// ErrUnsupportedDtype indicates a tensor whose backing type cannot be read.
	ErrUnsupportedDtype = errors.New("metric: unsupported dtype")

	// ErrIncompatibleMerge indicates Merge was called with a metric of a
	// different kind or configuration.
	ErrIncompatibleMerge = errors.New("metric: incompatible merge")
)

// Metric is the capability set shared by every metric.
type Metric interface {
	// Name returns the name the metric is reported under.
	Name() string
	// Update accumulates one batch. sampleWeight may be nil.
	Update(yTrue, yPred, sampleWeight tensor.Tensor) error
	// Result returns the aggregate value as of the last Update.
	Result() float64
	// Reset clears all accumulated state.
	Reset()
}

// Merger is implemented by metrics whose state can absorb another
// instance's state, for combining per-worker results.
type Merger interface {
	Merge(other Metric) error
}

// divideNoNaN returns num/den, or 0 when den is 0.
func divideNoNaN(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
