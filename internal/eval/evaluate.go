package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	segmetrics "github.com/jamesainslie/go-segmetrics"
	"github.com/jamesainslie/go-segmetrics/loss"
	"github.com/jamesainslie/go-segmetrics/metric"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"
)

// ErrMissingInput is returned when a sample lacks the file the run needs:
// a predicted mask without a Predictor, an image chip with one.
var ErrMissingInput = errors.New("eval: sample missing input")

// Predictor produces [1,H,W,C] class scores for a channels-last image chip.
// *inference.Pool and *inference.Session satisfy it.
type Predictor interface {
	Predict(ctx context.Context, image []float32, height, width, channels int) (tensor.Tensor, error)
}

// Options configures Evaluate and Sweep.
type Options struct {
	// Registry builds the metrics and loss. Nil uses the built-in registry.
	Registry *segmetrics.Registry
	// Config parameterizes the factories. Nil uses defaults.
	Config *segmetrics.Config
	// Metrics names the metrics to compute. Empty falls back to
	// Config.Metrics, then to a default set for the run's inputs.
	Metrics []string
	// Encoding is how labels are fed to the metrics: class indices
	// (EncodingSparse, also chosen by EncodingAuto) or one-hot channels.
	Encoding metric.Encoding
	// Predictor scores image chips. Nil evaluates predicted masks instead.
	Predictor Predictor
	// Loss names a loss tracked next to the metrics. It needs a Predictor
	// since masks carry no scores. Empty disables loss tracking.
	Loss string
	// Workers bounds concurrent samples. Zero uses GOMAXPROCS.
	Workers int
	// Logger receives progress records. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Registry == nil {
		o.Registry = segmetrics.NewRegistry(segmetrics.WithLogger(o.Logger))
	}
	o.Config = o.Config.WithDefaults()
	if o.Encoding == metric.EncodingAuto {
		o.Encoding = metric.EncodingSparse
	}
	if len(o.Metrics) == 0 {
		o.Metrics = o.Config.Metrics
	}
	if len(o.Metrics) == 0 {
		o.Metrics = DefaultMetrics(o.Predictor != nil, o.Encoding)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// DefaultMetrics returns the metric names that fit a run's inputs: scored
// predictions or predicted masks, fed sparse or one-hot.
func DefaultMetrics(scored bool, enc metric.Encoding) []string {
	switch {
	case enc == metric.EncodingOneHot:
		return []string{"categorical_accuracy", "ohe_iou", "precision", "recall", "f1_score"}
	case scored:
		return []string{"sparse_categorical_accuracy", "sparse_iou", "precision", "recall", "f1_score"}
	default:
		return []string{"accuracy", "iou", "precision", "recall", "f1_score"}
	}
}

// Result holds the merged values of one evaluation run.
type Result struct {
	Samples  int
	Names    []string           // metric names in computation order
	Metrics  map[string]float64 // includes the tracked loss, if any
	Duration time.Duration
}

// Evaluate computes the configured metrics over samples. Samples are split
// across Options.Workers; each worker updates its own metric set and the
// sets are merged at the end.
func Evaluate(ctx context.Context, samples []Sample, opts Options) (*Result, error) {
	o := opts.withDefaults()
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if o.Loss != "" && o.Predictor == nil {
		return nil, fmt.Errorf("loss %s needs a model: %w", o.Loss, ErrMissingInput)
	}

	start := time.Now()
	workers := min(o.Workers, len(samples))

	// Build everything up front so unknown names fail before any work.
	sets := make([]metric.Set, workers)
	trackers := make([]*loss.Tracker, workers)
	for i := range sets {
		set, err := o.Registry.Metrics(o.Config, o.Metrics...)
		if err != nil {
			return nil, err
		}
		sets[i] = set

		if o.Loss != "" {
			l, err := o.Registry.Loss(o.Loss, o.Config)
			if err != nil {
				return nil, err
			}
			trackers[i] = loss.NewTracker(l)
		}
	}

	o.Logger.Info("evaluation started",
		"samples", len(samples),
		"workers", workers,
		"metrics", sets[0].Names(),
		"model", o.Predictor != nil,
	)

	err := o.fanOut(ctx, samples, workers, func(shard int, b *batch) error {
		if err := sets[shard].Update(b.truth, b.pred, nil); err != nil {
			return err
		}
		if tr := trackers[shard]; tr != nil {
			return tr.Update(b.lossTruth, b.pred, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := sets[0]
	for _, s := range sets[1:] {
		if err := total.Merge(s); err != nil {
			return nil, fmt.Errorf("merging worker results: %w", err)
		}
	}
	if trackers[0] != nil {
		for _, tr := range trackers[1:] {
			if err := trackers[0].Merge(tr); err != nil {
				return nil, fmt.Errorf("merging worker loss: %w", err)
			}
		}
		total = append(total, trackers[0])
	}

	res := &Result{
		Samples:  len(samples),
		Names:    total.Names(),
		Metrics:  total.Results(),
		Duration: time.Since(start),
	}

	attrs := []any{"samples", res.Samples, "duration", res.Duration}
	for _, name := range res.Names {
		attrs = append(attrs, name, res.Metrics[name])
	}
	o.Logger.Info("evaluation complete", attrs...)

	return res, nil
}

// batch is one sample's metric inputs.
type batch struct {
	truth     tensor.Tensor // [N] class indices or [N,C] one-hot
	pred      tensor.Tensor // [N] class indices or [N,C] scores
	lossTruth tensor.Tensor // [N,C] one-hot; nil without a Predictor
}

// fanOut loads samples on workers round-robin shards and hands each batch to
// fn with its shard index. fn is never called concurrently for one shard.
func (o Options) fanOut(ctx context.Context, samples []Sample, workers int, fn func(shard int, b *batch) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for shard := 0; shard < workers; shard++ {
		g.Go(func() error {
			n := 0
			for i := shard; i < len(samples); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}

				b, err := o.load(gctx, samples[i])
				if err != nil {
					return fmt.Errorf("sample %s: %w", samples[i].ID, err)
				}
				if err := fn(shard, b); err != nil {
					return fmt.Errorf("sample %s: %w", samples[i].ID, err)
				}
				n++
			}
			o.Logger.Debug("shard complete", "shard", shard, "samples", n)
			return nil
		})
	}

	return g.Wait()
}

// load reads one sample and shapes it for the metrics.
func (o Options) load(ctx context.Context, s Sample) (*batch, error) {
	truth, err := ReadMask(s.TruthPath)
	if err != nil {
		return nil, fmt.Errorf("truth: %w", err)
	}

	if o.Predictor == nil {
		return o.loadMasks(s, truth)
	}

	if s.ChipPath == "" {
		return nil, fmt.Errorf("no image chip: %w", ErrMissingInput)
	}
	img, h, w, err := ReadChip(s.ChipPath)
	if err != nil {
		return nil, fmt.Errorf("chip: %w", err)
	}
	if h != truth.Height || w != truth.Width {
		return nil, fmt.Errorf("%w: chip %dx%d, truth %dx%d", metric.ErrShapeMismatch, w, h, truth.Width, truth.Height)
	}

	scores, err := o.Predictor.Predict(ctx, img, h, w, 3)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	pred, classes, err := flattenScores(scores, h, w)
	if err != nil {
		return nil, err
	}

	oneHot, err := oneHotMask(truth, classes)
	if err != nil {
		return nil, fmt.Errorf("truth: %w", err)
	}

	b := &batch{pred: pred, lossTruth: oneHot, truth: oneHot}
	if o.Encoding == metric.EncodingSparse {
		b.truth = sparseMask(truth)
	}
	return b, nil
}

func (o Options) loadMasks(s Sample, truth *Mask) (*batch, error) {
	if s.PredPath == "" {
		return nil, fmt.Errorf("no predicted mask: %w", ErrMissingInput)
	}
	pred, err := ReadMask(s.PredPath)
	if err != nil {
		return nil, fmt.Errorf("pred: %w", err)
	}
	if pred.Width != truth.Width || pred.Height != truth.Height {
		return nil, fmt.Errorf("%w: pred %dx%d, truth %dx%d", metric.ErrShapeMismatch,
			pred.Width, pred.Height, truth.Width, truth.Height)
	}

	if o.Encoding == metric.EncodingSparse {
		return &batch{truth: sparseMask(truth), pred: sparseMask(pred)}, nil
	}

	t, err := oneHotMask(truth, o.Config.NumClasses)
	if err != nil {
		return nil, fmt.Errorf("truth: %w", err)
	}
	p, err := oneHotMask(pred, o.Config.NumClasses)
	if err != nil {
		return nil, fmt.Errorf("pred: %w", err)
	}
	return &batch{truth: t, pred: p}, nil
}

// sparseMask views a mask as an [N] uint8 tensor of class indices.
func sparseMask(m *Mask) tensor.Tensor {
	return tensor.New(tensor.WithShape(m.Len()), tensor.WithBacking(m.Pix))
}

// oneHotMask expands a mask into an [N,classes] float32 tensor.
func oneHotMask(m *Mask, classes int) (tensor.Tensor, error) {
	data := make([]float32, m.Len()*classes)
	for i, c := range m.Pix {
		if int(c) >= classes {
			return nil, fmt.Errorf("%w: pixel class %d with %d classes", metric.ErrClassOutOfRange, c, classes)
		}
		data[i*classes+int(c)] = 1
	}
	return tensor.New(tensor.WithShape(m.Len(), classes), tensor.WithBacking(data)), nil
}

// flattenScores reshapes [1,H,W,C] model output into [H*W,C].
func flattenScores(scores tensor.Tensor, h, w int) (tensor.Tensor, int, error) {
	shape := scores.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != h || shape[2] != w {
		return nil, 0, fmt.Errorf("%w: model output %v for %dx%d chip", metric.ErrShapeMismatch, shape, w, h)
	}
	classes := shape[3]
	return tensor.New(tensor.WithShape(h*w, classes), tensor.WithBacking(scores.Data())), classes, nil
}
