package segmetrics

import (
	"fmt"

	"github.com/jamesainslie/go-segmetrics/loss"
	"github.com/jamesainslie/go-segmetrics/metric"
)

// MetricFactory builds a fresh metric from cfg. cfg may be nil.
type MetricFactory func(cfg *Config) metric.Metric

// LossFactory builds a fresh loss from cfg. cfg may be nil.
type LossFactory func(cfg *Config) loss.Loss

// Accuracy builds an elementwise accuracy metric.
func Accuracy(_ *Config) metric.Metric {
	return metric.NewAccuracy()
}

// CategoricalAccuracy builds an argmax-vs-argmax accuracy metric.
func CategoricalAccuracy(_ *Config) metric.Metric {
	return metric.NewCategoricalAccuracy()
}

// SparseCategoricalAccuracy builds an index-vs-argmax accuracy metric.
func SparseCategoricalAccuracy(_ *Config) metric.Metric {
	return metric.NewSparseCategoricalAccuracy()
}

// IoU builds an IoU named "iou" over cfg.NumClasses classes averaging
// cfg.TargetClassIDs, reading both inputs as class indices.
func IoU(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	return metric.NewIoU(c.NumClasses, c.TargetClassIDs, iouOptions(c, "iou")...)
}

// OneHotIoU builds an IoU named "ohe_iou" that takes the argmax of one-hot
// y_true and scored y_pred.
func OneHotIoU(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	return metric.NewOneHotIoU(c.NumClasses, c.TargetClassIDs, iouOptions(c, "ohe_iou")...)
}

// SparseIoU builds an IoU named "sparse_iou" for sparse y_true and scored
// y_pred.
func SparseIoU(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	opts := append(iouOptions(c, "sparse_iou"), metric.WithSparseLabels(true, false))
	return metric.NewIoU(c.NumClasses, c.TargetClassIDs, opts...)
}

// MeanIoU builds a mean IoU over all cfg.MeanIoUClasses classes.
func MeanIoU(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	return metric.NewMeanIoU(c.MeanIoUClasses, iouOptions(c, "mean_iou")...)
}

func iouOptions(c *Config, name string) []metric.Option {
	opts := []metric.Option{metric.WithName(name)}
	if c.IgnoreClass != nil {
		opts = append(opts, metric.WithIgnoreClass(*c.IgnoreClass))
	}
	return opts
}

// Precision builds a precision metric for cfg.ClassID named
// "precision_<class>".
func Precision(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	return metric.NewPrecision(classOptions(c, "precision")...)
}

// Recall builds a recall metric for cfg.ClassID named "recall_<class>".
func Recall(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	return metric.NewRecall(classOptions(c, "recall")...)
}

// F1Score builds the composite F1 metric for cfg.ClassID.
func F1Score(cfg *Config) metric.Metric {
	c := cfg.WithDefaults()
	enc, _ := metric.ParseEncoding(c.Encoding)
	return metric.NewF1Score(*c.ClassID,
		metric.WithThreshold(*c.Threshold),
		metric.WithEncoding(enc),
	)
}

func classOptions(c *Config, prefix string) []metric.Option {
	enc, _ := metric.ParseEncoding(c.Encoding)
	name := prefix
	if *c.ClassID != metric.NoClass {
		name = fmt.Sprintf("%s_%d", prefix, *c.ClassID)
	}
	return []metric.Option{
		metric.WithName(name),
		metric.WithClassID(*c.ClassID),
		metric.WithThreshold(*c.Threshold),
		metric.WithEncoding(enc),
	}
}

// MeanSquaredError builds the mean squared error loss.
func MeanSquaredError(_ *Config) loss.Loss {
	return loss.NewMeanSquaredError("mean_squared_error")
}
