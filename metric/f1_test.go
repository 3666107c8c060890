package metric

import (
	"errors"
	"math"
	"testing"
)

func TestF1Score_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		yTrue         []float64
		yPred         []float64
		wantPrecision float64
		wantRecall    float64
		wantF1        float64
	}{
		{
			name:          "one hit one miss each way",
			yTrue:         []float64{1, 1, 0, 0},
			yPred:         []float64{1, 0, 0, 1},
			wantPrecision: 0.5,
			wantRecall:    0.5,
			wantF1:        0.5,
		},
		{
			name:          "no positives at all",
			yTrue:         []float64{0, 0, 0, 0},
			yPred:         []float64{0, 0, 0, 0},
			wantPrecision: 0,
			wantRecall:    0,
			wantF1:        0,
		},
		{
			name:          "perfect",
			yTrue:         []float64{1, 0, 1, 0},
			yPred:         []float64{1, 0, 1, 0},
			wantPrecision: 1,
			wantRecall:    1,
			wantF1:        1,
		},
		{
			name:          "other classes are negatives",
			yTrue:         []float64{1, 2, 3, 1},
			yPred:         []float64{1, 1, 3, 2},
			wantPrecision: 0.5,
			wantRecall:    0.5,
			wantF1:        0.5,
		},
		{
			name:          "fractional indices truncate",
			yTrue:         []float64{1, 1, 0, 0},
			yPred:         []float64{1.9, 1.4, 0.6, 0.4},
			wantPrecision: 1,
			wantRecall:    1,
			wantF1:        1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewF1Score(1)
			if err := m.Update(vec(tt.yTrue...), vec(tt.yPred...), nil); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			got := m.Result()
			if math.IsNaN(got) {
				t.Fatal("Result() = NaN")
			}
			if !approx(m.Precision().Result(), tt.wantPrecision) {
				t.Errorf("precision = %v, want %v", m.Precision().Result(), tt.wantPrecision)
			}
			if !approx(m.Recall().Result(), tt.wantRecall) {
				t.Errorf("recall = %v, want %v", m.Recall().Result(), tt.wantRecall)
			}
			if !approx(got, tt.wantF1) {
				t.Errorf("Result() = %v, want %v", got, tt.wantF1)
			}
		})
	}
}

func TestF1Score_HarmonicMean(t *testing.T) {
	batches := [][2][]float64{
		{{1, 1, 1, 0, 0}, {1, 0, 0, 1, 0}},
		{{1, 1, 0, 0, 0, 0}, {1, 1, 1, 1, 1, 0}},
		{{0, 1, 1, 1}, {0, 1, 0, 0}},
	}

	for i, b := range batches {
		m := NewF1Score(NoClass)
		if err := m.Update(vec(b[0]...), vec(b[1]...), nil); err != nil {
			t.Fatalf("batch %d: Update() error = %v", i, err)
		}

		p := m.Precision().Result()
		r := m.Recall().Result()
		if p+r == 0 {
			t.Fatalf("batch %d: p + r = 0, fixture should have positives", i)
		}
		want := 2 * p * r / (p + r)
		if !approx(m.Result(), want) {
			t.Errorf("batch %d: Result() = %v, want %v", i, m.Result(), want)
		}
	}
}

func TestF1Score_ResultBeforeUpdate(t *testing.T) {
	m := NewF1Score(1)
	if got := m.Result(); got != 0 {
		t.Errorf("Result() = %v, want 0", got)
	}
	if m.Name() != "f1_score" {
		t.Errorf("Name() = %q, want f1_score", m.Name())
	}
}

func TestF1Score_ResetMatchesFresh(t *testing.T) {
	stale := NewF1Score(1)
	for range 3 {
		if err := stale.Update(vec(1, 1, 1, 0), vec(1, 1, 1, 1), nil); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	stale.Reset()

	if got := stale.Result(); got != 0 {
		t.Errorf("Result() after Reset = %v, want 0", got)
	}
	if stale.Precision().TruePositives != 0 || stale.Recall().FalseNegatives != 0 {
		t.Error("sub-metric counts survived Reset")
	}

	fresh := NewF1Score(1)
	seq := [][2][]float64{
		{{1, 0, 0, 0}, {0, 0, 0, 1}},
		{{1, 1, 0, 0}, {1, 0, 0, 1}},
	}
	for _, b := range seq {
		if err := stale.Update(vec(b[0]...), vec(b[1]...), nil); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if err := fresh.Update(vec(b[0]...), vec(b[1]...), nil); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if stale.Result() != fresh.Result() {
			t.Errorf("after reset Result() = %v, fresh instance = %v", stale.Result(), fresh.Result())
		}
	}
}

func TestF1Score_SampleWeight(t *testing.T) {
	m := NewF1Score(1)
	err := m.Update(vec(1, 1, 0, 0), vec(1, 0, 0, 1), vec(3, 1, 1, 1))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// tp=3 fp=1 fn=1
	if !approx(m.Result(), 0.75) {
		t.Errorf("Result() = %v, want 0.75", m.Result())
	}
}

func TestF1Score_OneHot(t *testing.T) {
	m := NewF1Score(1)
	yTrue := matrix(4, 2,
		0, 1,
		0, 1,
		1, 0,
		1, 0,
	)
	yPred := matrix(4, 2,
		0.2, 0.8,
		0.7, 0.3,
		0.9, 0.1,
		0.4, 0.6,
	)
	if err := m.Update(yTrue, yPred, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !approx(m.Result(), 0.5) {
		t.Errorf("Result() = %v, want 0.5", m.Result())
	}
}

func TestF1Score_Threshold(t *testing.T) {
	m := NewF1Score(NoClass, WithThreshold(0.7))
	if err := m.Update(vec(1, 1, 0), vec(0.9, 0.6, 0.8), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// tp=1 fp=1 fn=1
	if !approx(m.Result(), 0.5) {
		t.Errorf("Result() = %v, want 0.5", m.Result())
	}
}

func TestF1Score_Merge(t *testing.T) {
	yTrue := []float64{1, 1, 0, 0, 1, 0, 1, 1}
	yPred := []float64{1, 0, 0, 1, 1, 1, 0, 1}

	whole := NewF1Score(1)
	if err := whole.Update(vec(yTrue...), vec(yPred...), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	a, b := NewF1Score(1), NewF1Score(1)
	if err := a.Update(vec(yTrue[:4]...), vec(yPred[:4]...), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := b.Update(vec(yTrue[4:]...), vec(yPred[4:]...), nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if !approx(a.Result(), whole.Result()) {
		t.Errorf("merged Result() = %v, single pass = %v", a.Result(), whole.Result())
	}

	if err := a.Merge(NewF1Score(2)); !errors.Is(err, ErrIncompatibleMerge) {
		t.Errorf("Merge(class 2) error = %v, want ErrIncompatibleMerge", err)
	}
	if err := a.Merge(NewPrecision()); !errors.Is(err, ErrIncompatibleMerge) {
		t.Errorf("Merge(*Precision) error = %v, want ErrIncompatibleMerge", err)
	}
}

func TestF1Score_ShapeMismatch(t *testing.T) {
	m := NewF1Score(1)
	if err := m.Update(vec(1, 0), vec(1, 0, 1), nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Update() error = %v, want ErrShapeMismatch", err)
	}
	if m.Result() != 0 || m.Precision().TrueNegatives != 0 {
		t.Error("failed Update mutated state")
	}
}
