package detector

import (
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/metrics"
)

// Option configures a Model at construction.
type Option func(*options)

type options struct {
	loader  inference.Loader
	weights func() ([]byte, error)
	logger  *zap.Logger
	metrics *metrics.Collector
}

// WithLoader sets the engine loader. Every Model needs one, e.g. detectors.Load.
func WithLoader(loader inference.Loader) Option {
	return func(o *options) { o.loader = loader }
}

// WithWeights supplies weights instead of the embedded blob. The slice is copied.
func WithWeights(weights []byte) Option {
	owned := append([]byte(nil), weights...)
	return func(o *options) {
		o.weights = func() ([]byte, error) { return append([]byte(nil), owned...), nil }
	}
}

// WithLogger sets the logger that receives the inference bracket messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records run outcomes, latency and detections on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}
