// Package eval provides offline evaluation of segmentation masks and models.
package eval

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Dataset subdirectories.
const (
	TruthDir = "truth"
	PredDir  = "pred"
	ChipDir  = "chips"
)

// ErrNoSamples is returned when a dataset directory holds no usable pairs.
var ErrNoSamples = errors.New("eval: no samples")

// Sample is one ground-truth mask with either a predicted mask or an image
// chip to run through a model.
type Sample struct {
	ID        string // file name without extension
	TruthPath string
	PredPath  string // empty when the sample has no predicted mask
	ChipPath  string // empty when the sample has no image chip
}

// Mask is a single-band label image, one class index per pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// Len returns the pixel count.
func (m *Mask) Len() int {
	return m.Width * m.Height
}

// LoadDataset pairs dir/truth/*.png with dir/pred/*.png or dir/chips/*.png of
// the same name. Truth masks with neither partner are skipped.
func LoadDataset(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(filepath.Join(dir, TruthDir))
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var samples []Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			continue
		}

		s := Sample{
			ID:        strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			TruthPath: filepath.Join(dir, TruthDir, entry.Name()),
		}
		if p := filepath.Join(dir, PredDir, entry.Name()); fileExists(p) {
			s.PredPath = p
		}
		if p := filepath.Join(dir, ChipDir, entry.Name()); fileExists(p) {
			s.ChipPath = p
		}
		if s.PredPath == "" && s.ChipPath == "" {
			continue
		}
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	return samples, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// ReadMask loads a PNG label mask. Paletted images contribute their palette
// index, everything else its gray level.
func ReadMask(path string) (*Mask, error) {
	img, err := decodePNG(path)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	m := &Mask{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < m.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(m.Pix[y*m.Width:(y+1)*m.Width], src.Pix[off:off+m.Width])
		}
	case *image.Paletted:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Pix[y*m.Width+x] = src.ColorIndexAt(b.Min.X+x, b.Min.Y+y)
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				// Label masks are gray; take the luma of anything else.
				m.Pix[y*m.Width+x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 24)
			}
		}
	}
	return m, nil
}

// ReadChip loads a PNG image as channels-last RGB float32 scaled to [0, 1].
func ReadChip(path string) (data []float32, height, width int, err error) {
	img, err := decodePNG(path)
	if err != nil {
		return nil, 0, 0, err
	}

	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	data = make([]float32, 0, width*height*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			data = append(data,
				float32(r)/0xffff,
				float32(g)/0xffff,
				float32(bl)/0xffff,
			)
		}
	}
	return data, height, width, nil
}
