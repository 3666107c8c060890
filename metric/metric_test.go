package metric

import (
	"errors"
	"math"
	"testing"

	"gorgonia.org/tensor"
)

const tolerance = 1e-9

func vec(vals ...float64) tensor.Tensor {
	return tensor.New(tensor.WithShape(len(vals)), tensor.WithBacking(vals))
}

func matrix(rows, cols int, vals ...float64) tensor.Tensor {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(vals))
}

func approx(got, want float64) bool {
	return math.Abs(got-want) <= tolerance
}

func TestDivideNoNaN(t *testing.T) {
	if got := divideNoNaN(0, 0); got != 0 {
		t.Errorf("divideNoNaN(0, 0) = %v, want 0", got)
	}
	if got := divideNoNaN(1, 4); got != 0.25 {
		t.Errorf("divideNoNaN(1, 4) = %v, want 0.25", got)
	}
}

func TestRead_Dtypes(t *testing.T) {
	tests := []struct {
		name string
		in   tensor.Tensor
		want []float64
	}{
		{"float32", tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{0.5, 1})), []float64{0.5, 1}},
		{"int", tensor.New(tensor.WithShape(3), tensor.WithBacking([]int{0, 1, 2})), []float64{0, 1, 2}},
		{"int64", tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]int64{3, 4})), []float64{3, 4}},
		{"uint8", tensor.New(tensor.WithShape(2), tensor.WithBacking([]uint8{255, 0})), []float64{255, 0}},
		{"bool", tensor.New(tensor.WithShape(2), tensor.WithBacking([]bool{true, false})), []float64{1, 0}},
		{"scalar", tensor.New(tensor.FromScalar(2.5)), []float64{2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := read(tt.in)
			if err != nil {
				t.Fatalf("read() error = %v", err)
			}
			if len(got.data) != len(tt.want) {
				t.Fatalf("read() = %v, want %v", got.data, tt.want)
			}
			for i := range tt.want {
				if got.data[i] != tt.want[i] {
					t.Errorf("data[%d] = %v, want %v", i, got.data[i], tt.want[i])
				}
			}
		})
	}
}

func TestRead_Nil(t *testing.T) {
	if _, err := read(nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("read(nil) error = %v, want ErrShapeMismatch", err)
	}
}

func TestWeights(t *testing.T) {
	tests := []struct {
		name    string
		in      tensor.Tensor
		n       int
		want    []float64
		wantErr bool
	}{
		{"nil", nil, 3, nil, false},
		{"scalar", tensor.New(tensor.FromScalar(2.0)), 3, []float64{2, 2, 2}, false},
		{"per element", vec(1, 2, 3), 3, []float64{1, 2, 3}, false},
		{"per sample", vec(1, 2), 4, []float64{1, 1, 2, 2}, false},
		{"mismatch", vec(1, 2), 3, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := weights(tt.in, tt.n)
			if tt.wantErr {
				if !errors.Is(err, ErrShapeMismatch) {
					t.Errorf("weights() error = %v, want ErrShapeMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("weights() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("weights() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("weights()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{
		"":       EncodingAuto,
		"auto":   EncodingAuto,
		"onehot": EncodingOneHot,
		"ohe":    EncodingOneHot,
		"sparse": EncodingSparse,
	} {
		got, ok := ParseEncoding(in)
		if !ok || got != want {
			t.Errorf("ParseEncoding(%q) = %v, %v; want %v, true", in, got, ok, want)
		}
		if in != "" && in != "ohe" && got.String() != in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), in)
		}
	}

	if _, ok := ParseEncoding("dense"); ok {
		t.Error("ParseEncoding(dense) ok = true, want false")
	}
}
