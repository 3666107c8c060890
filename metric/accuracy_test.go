package metric

import (
	"errors"
	"testing"

	"gorgonia.org/tensor"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name   string
		yTrue  []float64
		yPred  []float64
		weight tensor.Tensor
		want   float64
	}{
		{"all equal", []float64{1, 2, 3}, []float64{1, 2, 3}, nil, 1},
		{"three of four", []float64{1, 2, 3, 4}, []float64{0, 2, 3, 4}, nil, 0.75},
		{"weighted miss", []float64{1, 2, 3, 4}, []float64{0, 2, 3, 4}, vec(5, 1, 1, 1), 3.0 / 8.0},
		{"zero weights", []float64{1}, []float64{1}, vec(0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAccuracy()
			if err := m.Update(vec(tt.yTrue...), vec(tt.yPred...), tt.weight); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if got := m.Result(); !approx(got, tt.want) {
				t.Errorf("Result() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy_Accumulates(t *testing.T) {
	m := NewAccuracy()
	if err := m.Update(vec(1, 1), vec(1, 1), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := m.Update(vec(1, 1), vec(0, 0), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := m.Result(); got != 0.5 {
		t.Errorf("Result() = %v, want 0.5", got)
	}

	m.Reset()
	if got := m.Result(); got != 0 {
		t.Errorf("Result() after Reset = %v, want 0", got)
	}
}

func TestCategoricalAccuracy(t *testing.T) {
	m := NewCategoricalAccuracy()
	yTrue := matrix(2, 2, 0, 1, 1, 0)
	yPred := matrix(2, 2, 0.2, 0.8, 0.3, 0.7)

	if err := m.Update(yTrue, yPred, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := m.Result(); got != 0.5 {
		t.Errorf("Result() = %v, want 0.5", got)
	}

	if err := m.Update(yTrue, matrix(2, 3, 0, 0, 1, 1, 0, 0), nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Update() error = %v, want ErrShapeMismatch", err)
	}
}

func TestSparseCategoricalAccuracy(t *testing.T) {
	yPred := matrix(2, 2, 0.2, 0.8, 0.3, 0.7)

	tests := []struct {
		name  string
		yTrue tensor.Tensor
	}{
		{"flat indices", vec(1, 0)},
		{"trailing axis", matrix(2, 1, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSparseCategoricalAccuracy()
			if err := m.Update(tt.yTrue, yPred, nil); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if got := m.Result(); got != 0.5 {
				t.Errorf("Result() = %v, want 0.5", got)
			}
		})
	}
}

func TestAccuracy_Merge(t *testing.T) {
	a, b := NewAccuracy(), NewAccuracy()
	if err := a.Update(vec(1, 1), vec(1, 1), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := b.Update(vec(1, 1), vec(1, 0), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := a.Result(); got != 0.75 {
		t.Errorf("Result() = %v, want 0.75", got)
	}

	if err := a.Merge(NewCategoricalAccuracy()); !errors.Is(err, ErrIncompatibleMerge) {
		t.Errorf("Merge() error = %v, want ErrIncompatibleMerge", err)
	}
}

func TestAccuracy_Names(t *testing.T) {
	tests := []struct {
		m    Metric
		want string
	}{
		{NewAccuracy(), "accuracy"},
		{NewCategoricalAccuracy(), "categorical_accuracy"},
		{NewSparseCategoricalAccuracy(), "sparse_categorical_accuracy"},
		{NewAccuracy(WithName("pixel_accuracy")), "pixel_accuracy"},
	}
	for _, tt := range tests {
		if got := tt.m.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}
