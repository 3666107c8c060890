package metric

import (
	"fmt"

	"gorgonia.org/tensor"
)

// flat is a tensor copied into float64s together with its shape.
type flat struct {
	shape []int
	data  []float64
}

// last returns the size of the trailing axis, 1 for scalars.
func (f flat) last() int {
	if len(f.shape) == 0 {
		return 1
	}
	return f.shape[len(f.shape)-1]
}

// rows returns the number of trailing-axis vectors.
func (f flat) rows() int {
	l := f.last()
	if l == 0 {
		return 0
	}
	return len(f.data) / l
}

// argmax returns the index of the largest value in each trailing-axis vector.
// Ties resolve to the lowest index.
func (f flat) argmax() []int {
	l := f.last()
	out := make([]int, f.rows())
	for r := range out {
		row := f.data[r*l : (r+1)*l]
		best := 0
		for i := 1; i < len(row); i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		out[r] = best
	}
	return out
}

// column returns channel c of every trailing-axis vector.
func (f flat) column(c int) ([]float64, error) {
	l := f.last()
	if c < 0 || c >= l {
		return nil, fmt.Errorf("%w: class %d with %d channels", ErrClassOutOfRange, c, l)
	}
	out := make([]float64, f.rows())
	for r := range out {
		out[r] = f.data[r*l+c]
	}
	return out, nil
}

// indices truncates every element toward zero to a class index, as an
// integer cast would.
func (f flat) indices() []int {
	out := make([]int, len(f.data))
	for i, v := range f.data {
		out[i] = int(v)
	}
	return out
}

func isNil(t tensor.Tensor) bool {
	if t == nil {
		return true
	}
	d, ok := t.(*tensor.Dense)
	return ok && d == nil
}

// read copies t into a flat. Views must be materialized by the caller.
func read(t tensor.Tensor) (flat, error) {
	if isNil(t) {
		return flat{}, fmt.Errorf("%w: nil tensor", ErrShapeMismatch)
	}

	data, err := float64s(t.Data())
	if err != nil {
		return flat{}, err
	}

	shape := []int(t.Shape().Clone())
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != len(data) {
		return flat{}, fmt.Errorf("%w: shape %v holds %d values, backing has %d",
			ErrShapeMismatch, shape, size, len(data))
	}

	return flat{shape: shape, data: data}, nil
}

func float64s(v interface{}) ([]float64, error) {
	switch d := v.(type) {
	case []float64:
		out := make([]float64, len(d))
		copy(out, d)
		return out, nil
	case []float32:
		return convert(d), nil
	case []int:
		return convert(d), nil
	case []int32:
		return convert(d), nil
	case []int64:
		return convert(d), nil
	case []uint8:
		return convert(d), nil
	case []bool:
		out := make([]float64, len(d))
		for i, b := range d {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case float64:
		return []float64{d}, nil
	case float32:
		return []float64{float64(d)}, nil
	case int:
		return []float64{float64(d)}, nil
	case int32:
		return []float64{float64(d)}, nil
	case int64:
		return []float64{float64(d)}, nil
	case uint8:
		return []float64{float64(d)}, nil
	case bool:
		if d {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedDtype, v)
}

type number interface {
	~float32 | ~int | ~int32 | ~int64 | ~uint8
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// weights expands sampleWeight to n per-element weights. A weight tensor may
// hold n values, a single value, or one value per leading group (n must be a
// multiple of its size). A nil tensor yields nil, meaning unit weights.
func weights(sampleWeight tensor.Tensor, n int) ([]float64, error) {
	if isNil(sampleWeight) {
		return nil, nil
	}

	w, err := read(sampleWeight)
	if err != nil {
		return nil, fmt.Errorf("sample weight: %w", err)
	}

	m := len(w.data)
	switch {
	case m == n:
		return w.data, nil
	case m == 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = w.data[0]
		}
		return out, nil
	case m > 0 && n%m == 0:
		per := n / m
		out := make([]float64, n)
		for i := range out {
			out[i] = w.data[i/per]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d sample weights for %d values", ErrShapeMismatch, m, n)
}

// weightAt returns w[i], treating nil as unit weights.
func weightAt(w []float64, i int) float64 {
	if w == nil {
		return 1
	}
	return w[i]
}

// Values copies t into float64s and returns them with t's shape.
func Values(t tensor.Tensor) (data []float64, shape []int, err error) {
	f, err := read(t)
	if err != nil {
		return nil, nil, err
	}
	return f.data, f.shape, nil
}

// SampleWeights expands a weight tensor to n values using the same
// broadcasting rules as Update. A nil tensor yields nil.
func SampleWeights(sampleWeight tensor.Tensor, n int) ([]float64, error) {
	return weights(sampleWeight, n)
}
