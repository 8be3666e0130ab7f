package host

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-yolo-ffi/config"
	"github.com/nvr-ai/go-yolo-ffi/detector"
	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/inference/detectors"
	"github.com/nvr-ai/go-yolo-ffi/logging"
	"github.com/nvr-ai/go-yolo-ffi/metrics"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// Runtime is the process-wide state behind the exported C functions. It
// holds the handle registry, the active configuration, the console sink and
// the metrics shared by every model it opens.
type Runtime struct {
	*Registry

	mu      sync.Mutex
	cfg     config.Config
	level   zap.AtomicLevel
	extra   []detector.Option
	gather  *prometheus.Registry
	metrics *metrics.Collector
}

// NewRuntime returns a runtime using config.Default and no console.
// opts are applied to every model after the runtime's own options.
func NewRuntime(opts ...detector.Option) *Runtime {
	reg := prometheus.NewRegistry()
	rt := &Runtime{
		cfg:     config.Default(),
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
		extra:   opts,
		gather:  reg,
		metrics: metrics.MustNew(reg),
	}
	rt.Registry = NewRegistry(rt.factory(detectors.NewLoader(rt.cfg.DetectorConfig())), nil)
	return rt
}

// Configure applies YAML configuration to models opened afterwards.
// Empty input restores the defaults.
func (rt *Runtime) Configure(yaml []byte) error {
	cfg, err := config.Parse(yaml)
	if err != nil {
		return wrap("configure", err)
	}
	level, _ := logging.ParseLevel(cfg.Logging.Level)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.cfg = cfg
	rt.level.SetLevel(level)
	rt.SetFactory(rt.factory(detectors.NewLoader(cfg.DetectorConfig())))
	return nil
}

// Config returns the active configuration.
func (rt *Runtime) Config() config.Config {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.cfg
}

// SetConsole routes model logs to print. A nil print silences them.
func (rt *Runtime) SetConsole(print ConsoleFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if print == nil {
		rt.SetLogger(nil)
		return
	}
	rt.SetLogger(NewConsoleLogger(rt.level, print))
}

// Metrics renders the run, latency and detection counters of every model
// opened by rt in the Prometheus text format.
func (rt *Runtime) Metrics() (string, error) {
	return metrics.Render(rt.gather)
}

// ClassNames returns the label table models report names from.
func (rt *Runtime) ClassNames() []string {
	return models.YOLOClasses.Names()
}

func (rt *Runtime) factory(loader inference.Loader) Factory {
	return func(log *zap.Logger) (*detector.Model, error) {
		opts := append([]detector.Option{
			detector.WithLoader(loader),
			detector.WithMetrics(rt.metrics),
		}, rt.extra...)
		opts = append(opts, detector.WithLogger(log))
		return detector.New(opts...)
	}
}
