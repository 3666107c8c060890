package metric

// Encoding selects how class-scoped metrics read labels.
type Encoding int

const (
	// EncodingAuto treats rank-1 inputs as sparse and higher ranks as one-hot.
	EncodingAuto Encoding = iota
	// EncodingOneHot reads the trailing axis as per-class channels.
	EncodingOneHot
	// EncodingSparse reads each element as a class index.
	EncodingSparse
)

// String returns the encoding's config name.
func (e Encoding) String() string {
	switch e {
	case EncodingOneHot:
		return "onehot"
	case EncodingSparse:
		return "sparse"
	default:
		return "auto"
	}
}

// ParseEncoding maps a config name to an Encoding. Unknown names map to
// EncodingAuto and ok=false.
func ParseEncoding(s string) (e Encoding, ok bool) {
	switch s {
	case "", "auto":
		return EncodingAuto, true
	case "onehot", "one_hot", "ohe":
		return EncodingOneHot, true
	case "sparse":
		return EncodingSparse, true
	}
	return EncodingAuto, false
}

// NoClass disables class scoping for precision and recall.
const NoClass = -1

// Option configures a metric at construction.
type Option func(*options)

type options struct {
	name        string
	threshold   float64
	classID     int
	encoding    Encoding
	sparseTrue  bool
	sparsePred  bool
	ignoreClass int
}

func defaultOptions() options {
	return options{
		threshold:   0.5,
		classID:     NoClass,
		encoding:    EncodingAuto,
		sparseTrue:  true,
		sparsePred:  true,
		ignoreClass: NoClass,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName overrides the reported name.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithThreshold sets the prediction threshold for precision and recall
// (default: 0.5). Predictions strictly above it count as positive.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithClassID scopes precision and recall to one class. NoClass disables it.
func WithClassID(id int) Option {
	return func(o *options) {
		o.classID = id
	}
}

// WithEncoding sets the label encoding for class-scoped metrics.
func WithEncoding(e Encoding) Option {
	return func(o *options) {
		o.encoding = e
	}
}

// WithSparseLabels sets whether IoU reads y_true and y_pred as class indices
// (true) or as per-class scores over the trailing axis (false). Both default
// to true.
func WithSparseLabels(sparseTrue, sparsePred bool) Option {
	return func(o *options) {
		o.sparseTrue = sparseTrue
		o.sparsePred = sparsePred
	}
}

// WithIgnoreClass excludes elements whose true class equals id from IoU.
func WithIgnoreClass(id int) Option {
	return func(o *options) {
		o.ignoreClass = id
	}
}
