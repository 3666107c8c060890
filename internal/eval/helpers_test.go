package eval

import (
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeMask writes a w-wide gray PNG whose pixel values are pix.
func writeMask(t *testing.T, path string, w int, pix []uint8) {
	t.Helper()
	h := len(pix) / w
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, pix)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// writeDataset lays out a dataset under a temp dir. Each entry maps a
// sample id to its truth pixels and, optionally, pred and chip pixels.
func writeDataset(t *testing.T, w int, samples map[string][3][]uint8) string {
	t.Helper()
	dir := t.TempDir()
	for id, s := range samples {
		writeMask(t, filepath.Join(dir, TruthDir, id+".png"), w, s[0])
		if s[1] != nil {
			writeMask(t, filepath.Join(dir, PredDir, id+".png"), w, s[1])
		}
		if s[2] != nil {
			writeMask(t, filepath.Join(dir, ChipDir, id+".png"), w, s[2])
		}
	}
	return dir
}

// stubPredictor reads a class index from each chip pixel's gray level and
// scores it conf, spreading the rest evenly over the other classes.
type stubPredictor struct {
	classes int
	conf    float32
}

func (p stubPredictor) Predict(ctx context.Context, image []float32, height, width, channels int) (tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := height * width
	rest := (1 - p.conf) / float32(p.classes-1)
	out := make([]float32, n*p.classes)
	for i := 0; i < n; i++ {
		class := int(math.Round(float64(image[i*channels]) * 255))
		for c := 0; c < p.classes; c++ {
			out[i*p.classes+c] = rest
		}
		out[i*p.classes+class] = p.conf
	}
	return tensor.New(tensor.WithShape(1, height, width, p.classes), tensor.WithBacking(out)), nil
}

