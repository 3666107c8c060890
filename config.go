package segmetrics

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jamesainslie/go-segmetrics/metric"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables applied on top of a loaded config file.
const (
	EnvEnv        = "SEGMETRICS_ENV"
	EnvClassID    = "SEGMETRICS_CLASS_ID"
	EnvNumClasses = "SEGMETRICS_NUM_CLASSES"
	EnvThreshold  = "SEGMETRICS_THRESHOLD"
	EnvMetrics    = "SEGMETRICS_METRICS"
)

// Defaults for experiment-specific values. They reproduce the building
// segmentation setup: four mask classes, buildings as class 1.
const (
	DefaultNumClasses     = 4
	DefaultMeanIoUClasses = 2
	DefaultClassID        = 1
	DefaultThreshold      = 0.5
	DefaultLoss           = "mse"
)

// DefaultTargetClassIDs are the classes averaged by the iou factories.
var DefaultTargetClassIDs = []int{0, 1}

// Config holds metric hyperparameters. Zero values select defaults, so a nil
// or empty Config is valid everywhere a *Config is accepted.
type Config struct {
	// NumClasses is the class count of the iou, ohe_iou and sparse_iou metrics.
	NumClasses int `toml:"num_classes"`
	// TargetClassIDs are the classes averaged by the iou metrics.
	TargetClassIDs []int `toml:"target_class_ids"`
	// MeanIoUClasses is the class count of mean_iou.
	MeanIoUClasses int `toml:"mean_iou_classes"`
	// ClassID scopes precision, recall and f1_score. -1 disables scoping.
	ClassID *int `toml:"class_id"`
	// Threshold is the positive-prediction threshold for precision, recall
	// and f1_score. An explicit 0 counts every positive score.
	Threshold *float64 `toml:"threshold"`
	// Encoding is the label encoding for precision, recall and f1_score:
	// "auto", "onehot" or "sparse".
	Encoding string `toml:"encoding"`
	// IgnoreClass, when set, is excluded from the iou metrics.
	IgnoreClass *int `toml:"ignore_class"`

	// Metrics names the metrics built by Registry.Metrics.
	Metrics []string `toml:"metrics"`
	// Loss names the loss built by Registry.Loss.
	Loss string `toml:"loss"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	var c *Config
	return c.WithDefaults()
}

// WithDefaults returns a copy of c with defaults applied. c may be nil.
func (c *Config) WithDefaults() *Config {
	out := &Config{}
	if c != nil {
		*out = *c
		out.TargetClassIDs = slices.Clone(c.TargetClassIDs)
		out.Metrics = slices.Clone(c.Metrics)
	}

	if out.NumClasses <= 0 {
		out.NumClasses = DefaultNumClasses
	}
	if len(out.TargetClassIDs) == 0 {
		out.TargetClassIDs = slices.Clone(DefaultTargetClassIDs)
	}
	if out.MeanIoUClasses <= 0 {
		out.MeanIoUClasses = DefaultMeanIoUClasses
	}
	if out.ClassID == nil {
		id := DefaultClassID
		out.ClassID = &id
	}
	if out.Threshold == nil {
		t := DefaultThreshold
		out.Threshold = &t
	}
	if out.Encoding == "" {
		out.Encoding = metric.EncodingAuto.String()
	}
	if out.Loss == "" {
		out.Loss = DefaultLoss
	}
	return out
}

// Validate reports the first out-of-range value, wrapped in ErrInvalidConfig.
// Unset fields are checked after defaults apply.
func (c *Config) Validate() error {
	r := c.WithDefaults()

	for _, id := range r.TargetClassIDs {
		if id < 0 || id >= r.NumClasses {
			return fmt.Errorf("%w: target class %d not in [0, %d)", ErrInvalidConfig, id, r.NumClasses)
		}
	}
	if id := *r.ClassID; id < metric.NoClass || id >= r.NumClasses {
		return fmt.Errorf("%w: class_id %d not in [-1, %d)", ErrInvalidConfig, id, r.NumClasses)
	}
	if t := *r.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: threshold %g not in [0, 1]", ErrInvalidConfig, t)
	}
	if _, ok := metric.ParseEncoding(r.Encoding); !ok {
		return fmt.Errorf("%w: encoding %q", ErrInvalidConfig, r.Encoding)
	}
	return nil
}

// Merge overwrites c with the set fields of overlay: non-zero values, and
// non-nil pointers even when they point at zero.
func (c *Config) Merge(overlay *Config) {
	if overlay == nil {
		return
	}
	if overlay.NumClasses != 0 {
		c.NumClasses = overlay.NumClasses
	}
	if len(overlay.TargetClassIDs) > 0 {
		c.TargetClassIDs = slices.Clone(overlay.TargetClassIDs)
	}
	if overlay.MeanIoUClasses != 0 {
		c.MeanIoUClasses = overlay.MeanIoUClasses
	}
	if overlay.ClassID != nil {
		id := *overlay.ClassID
		c.ClassID = &id
	}
	if overlay.Threshold != nil {
		t := *overlay.Threshold
		c.Threshold = &t
	}
	if overlay.Encoding != "" {
		c.Encoding = overlay.Encoding
	}
	if overlay.IgnoreClass != nil {
		id := *overlay.IgnoreClass
		c.IgnoreClass = &id
	}
	if len(overlay.Metrics) > 0 {
		c.Metrics = slices.Clone(overlay.Metrics)
	}
	if overlay.Loss != "" {
		c.Loss = overlay.Loss
	}
}

// LoadConfig reads a TOML config file, applies the SEGMETRICS_ENV overlay
// file (config.<env>.toml next to path) when present, then environment
// variables, then validates. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded

		if overlay := overlayPath(path); overlay != "" {
			o, err := loadFile(overlay)
			if err != nil {
				return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
			}
			cfg.Merge(o)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvEnv)
	if env == "" {
		return ""
	}

	ext := filepath.Ext(base)
	path := strings.TrimSuffix(base, ext) + "." + env + ext
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvClassID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvClassID, err)
		}
		c.ClassID = &id
	}
	if v := os.Getenv(EnvNumClasses); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvNumClasses, err)
		}
		c.NumClasses = n
	}
	if v := os.Getenv(EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvThreshold, err)
		}
		c.Threshold = &t
	}
	if v := os.Getenv(EnvMetrics); v != "" {
		c.Metrics = splitList(v)
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
