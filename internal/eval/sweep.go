package eval

import (
	"context"
	"fmt"
	"sort"

	"github.com/jamesainslie/go-segmetrics/metric"
)

// SweepResult holds precision, recall and F1 for one threshold value.
type SweepResult struct {
	Threshold float64
	Precision float64
	Recall    float64
	F1        float64
}

// SweepThresholds generates threshold values from min up to, but excluding,
// max with the given step.
func SweepThresholds(min, max, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	var thresholds []float64
	for i := 0; ; i++ {
		t := min + float64(i)*step
		if t >= max {
			break
		}
		thresholds = append(thresholds, t)
	}
	return thresholds
}

// Sweep scores the configured class at every threshold in one pass over
// samples and returns the results sorted by F1 descending. It needs
// Options.Predictor.
func Sweep(ctx context.Context, samples []Sample, opts Options, thresholds []float64) ([]SweepResult, error) {
	o := opts.withDefaults()
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	// Mask indices carry no scores to threshold.
	if o.Predictor == nil {
		return nil, fmt.Errorf("threshold sweep needs a model: %w", ErrMissingInput)
	}
	if len(thresholds) == 0 {
		return nil, nil
	}

	enc, _ := metric.ParseEncoding(o.Config.Encoding)
	classID := *o.Config.ClassID

	workers := min(o.Workers, len(samples))
	grids := make([][]*metric.F1Score, workers)
	for i := range grids {
		grids[i] = make([]*metric.F1Score, len(thresholds))
		for j, t := range thresholds {
			grids[i][j] = metric.NewF1Score(classID,
				metric.WithName(fmt.Sprintf("f1_%.3f", t)),
				metric.WithThreshold(t),
				metric.WithEncoding(enc),
			)
		}
	}

	o.Logger.Info("sweep started",
		"samples", len(samples),
		"thresholds", len(thresholds),
		"class_id", classID,
	)

	err := o.fanOut(ctx, samples, workers, func(shard int, b *batch) error {
		for _, m := range grids[shard] {
			if err := m.Update(b.truth, b.pred, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(thresholds))
	for j, t := range thresholds {
		total := grids[0][j]
		for _, grid := range grids[1:] {
			if err := total.Merge(grid[j]); err != nil {
				return nil, fmt.Errorf("merging threshold %g: %w", t, err)
			}
		}
		results[j] = SweepResult{
			Threshold: t,
			Precision: total.Precision().Result(),
			Recall:    total.Recall().Result(),
			F1:        total.Result(),
		}
	}

	// Sort by F1 descending; ties keep threshold order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].F1 > results[j].F1
	})

	o.Logger.Info("sweep complete", "best_threshold", results[0].Threshold, "best_f1", results[0].F1)
	return results, nil
}
