package metric

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// IoU accumulates a confusion matrix and reports the mean intersection over
// union of its target classes.
//
// Rows of the matrix are true classes and columns predicted classes. For a
// target class c, IoU is tp / (row_c + col_c - tp). Classes with a zero
// denominator are left out of the mean; if none remain the result is 0.
type IoU struct {
	name        string
	numClasses  int
	targets     []int
	sparseTrue  bool
	sparsePred  bool
	ignoreClass int
	cm          *mat.Dense
}

// NewIoU returns an IoU over numClasses classes averaging targetClassIDs.
// Labels are read as class indices unless WithSparseLabels says otherwise.
// Target ids outside [0, numClasses) never contribute.
func NewIoU(numClasses int, targetClassIDs []int, opts ...Option) *IoU {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = "iou"
	}
	if numClasses < 1 {
		numClasses = 1
	}
	return &IoU{
		name:        o.name,
		numClasses:  numClasses,
		targets:     slices.Clone(targetClassIDs),
		sparseTrue:  o.sparseTrue,
		sparsePred:  o.sparsePred,
		ignoreClass: o.ignoreClass,
		cm:          mat.NewDense(numClasses, numClasses, nil),
	}
}

// NewOneHotIoU returns an IoU that takes the argmax of both y_true and
// y_pred over their trailing axis.
func NewOneHotIoU(numClasses int, targetClassIDs []int, opts ...Option) *IoU {
	opts = append([]Option{WithName("one_hot_iou"), WithSparseLabels(false, false)}, opts...)
	return NewIoU(numClasses, targetClassIDs, opts...)
}

// NewMeanIoU returns an IoU averaging every class.
func NewMeanIoU(numClasses int, opts ...Option) *IoU {
	targets := make([]int, max(numClasses, 1))
	for i := range targets {
		targets[i] = i
	}
	opts = append([]Option{WithName("mean_iou")}, opts...)
	return NewIoU(numClasses, targets, opts...)
}

// Name returns the reported name.
func (m *IoU) Name() string { return m.name }

// NumClasses returns the confusion matrix size.
func (m *IoU) NumClasses() int { return m.numClasses }

// TargetClassIDs returns the classes averaged by Result.
func (m *IoU) TargetClassIDs() []int { return slices.Clone(m.targets) }

// Update adds one batch to the confusion matrix. The batch is validated
// before any count changes.
func (m *IoU) Update(yTrue, yPred, sampleWeight tensor.Tensor) error {
	t, p, err := readPair(yTrue, yPred)
	if err != nil {
		return err
	}

	truth := labels(t, m.sparseTrue)
	pred := labels(p, m.sparsePred)
	if len(truth) != len(pred) {
		return fmt.Errorf("%w: %d true labels, %d predicted", ErrShapeMismatch, len(truth), len(pred))
	}

	w, err := weights(sampleWeight, len(truth))
	if err != nil {
		return err
	}

	for i := range truth {
		if truth[i] == m.ignoreClass && m.ignoreClass != NoClass {
			continue
		}
		if err := m.checkClass(truth[i]); err != nil {
			return fmt.Errorf("y_true: %w", err)
		}
		if err := m.checkClass(pred[i]); err != nil {
			return fmt.Errorf("y_pred: %w", err)
		}
	}

	for i := range truth {
		if truth[i] == m.ignoreClass && m.ignoreClass != NoClass {
			continue
		}
		tc, pc := truth[i], pred[i]
		m.cm.Set(tc, pc, m.cm.At(tc, pc)+weightAt(w, i))
	}
	return nil
}

func (m *IoU) checkClass(c int) error {
	if c < 0 || c >= m.numClasses {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrClassOutOfRange, c, m.numClasses)
	}
	return nil
}

// Result returns the mean IoU over target classes with a non-zero
// denominator.
func (m *IoU) Result() float64 {
	var sum float64
	valid := 0
	col := make([]float64, m.numClasses)
	for _, c := range m.targets {
		if c < 0 || c >= m.numClasses {
			continue
		}
		tp := m.cm.At(c, c)
		den := floats.Sum(m.cm.RawRowView(c)) + floats.Sum(mat.Col(col, c, m.cm)) - tp
		if den == 0 {
			continue
		}
		valid++
		sum += tp / den
	}
	return divideNoNaN(sum, float64(valid))
}

// Reset zeroes the confusion matrix.
func (m *IoU) Reset() {
	m.cm.Zero()
}

// ConfusionMatrix returns a copy of the accumulated matrix.
func (m *IoU) ConfusionMatrix() *mat.Dense {
	return mat.DenseCopyOf(m.cm)
}

// Merge adds another IoU's confusion matrix. Both must share class count and
// targets.
func (m *IoU) Merge(other Metric) error {
	o, ok := other.(*IoU)
	if !ok {
		return fmt.Errorf("%w: %T into *IoU", ErrIncompatibleMerge, other)
	}
	if o.numClasses != m.numClasses || !slices.Equal(o.targets, m.targets) {
		return fmt.Errorf("%w: %s has %d classes %v, %s has %d classes %v",
			ErrIncompatibleMerge, m.name, m.numClasses, m.targets, o.name, o.numClasses, o.targets)
	}
	m.cm.Add(m.cm, o.cm)
	return nil
}

// labels reads class indices directly or via argmax over the trailing axis.
func labels(f flat, sparse bool) []int {
	if sparse {
		return f.indices()
	}
	return f.argmax()
}
