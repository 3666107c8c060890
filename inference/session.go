// Package inference provides ONNX Runtime integration for segmentation model
// inference.
package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

var (
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("inference: pool closed")

	// ErrSessionClosed is returned by Predict after Close.
	ErrSessionClosed = errors.New("inference: session closed")
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once. libraryPath is only
// honored on the first call.
func initORT(libraryPath string) error {
	ortEnvOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Config describes a segmentation model.
type Config struct {
	// ModelPath is the .onnx file.
	ModelPath string
	// InputName and OutputName select the model's image input and
	// per-pixel class score output. Empty names use the model's first input
	// and first output.
	InputName  string
	OutputName string
	// LibraryPath is the onnxruntime shared library; empty uses the
	// platform default.
	LibraryPath string
}

// Session wraps an ONNX Runtime session for a channels-last segmentation
// model: [1,H,W,3] float32 in, [1,H,W,C] class scores out.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from cfg.
func NewSession(cfg Config) (*Session, error) {
	// Check file exists
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	inputName, outputName, err := resolveNames(cfg)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// resolveNames fills empty input/output names from the model's metadata.
func resolveNames(cfg Config) (string, string, error) {
	if cfg.InputName != "" && cfg.OutputName != "" {
		return cfg.InputName, cfg.OutputName, nil
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return "", "", fmt.Errorf("reading model io info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return "", "", fmt.Errorf("model declares %d inputs and %d outputs", len(inputs), len(outputs))
	}

	in, out := cfg.InputName, cfg.OutputName
	if in == "" {
		in = inputs[0].Name
	}
	if out == "" {
		out = outputs[0].Name
	}
	return in, out, nil
}

// Predict runs the model on one channels-last image chip of the given
// height, width and channel count, values already scaled. It returns the
// class scores as a [1,H,W,C] float32 tensor.
func (s *Session) Predict(ctx context.Context, image []float32, height, width, channels int) (tensor.Tensor, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(image) != height*width*channels {
		return nil, fmt.Errorf("image has %d values, want %dx%dx%d", len(image), height, width, channels)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	input, err := ort.NewTensor(
		ort.NewShape(1, int64(height), int64(width), int64(channels)),
		image,
	)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	// nil outputs are allocated by Run
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	shape := scores.GetShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}

	// Copy out of ORT-owned memory before Destroy
	data := make([]float32, len(scores.GetData()))
	copy(data, scores.GetData())

	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data)), nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
