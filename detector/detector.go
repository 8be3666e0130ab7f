// Package detector is the adapter between a host and a detection engine.
//
// A Model owns one engine built from the embedded weights. Run feeds one
// encoded image through the engine and returns the detections as JSON:
//
//	[["person",{"xmin":..,"ymin":..,"xmax":..,"ymax":..,"confidence":..}], ...]
//
// Detections are grouped by ascending class index and keep the engine's order
// within a class. Thresholds are forwarded untouched.
package detector

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo-ffi/assets"
	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/logging"
	"github.com/nvr-ai/go-yolo-ffi/metrics"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// Log messages bracketing every engine run.
const (
	MsgInferenceStart = "Starting model inference..."
	MsgInferenceDone  = "Model inference complete"
)

var (
	// ErrClosed is returned by Run and Detect after Close.
	ErrClosed = errors.New("model is closed")

	// ErrNoLoader is returned by New when no engine loader was supplied.
	ErrNoLoader = errors.New("no engine loader configured")
)

// Model is a loaded detector. Methods are safe for concurrent use but runs
// are serialized.
type Model struct {
	id      string
	log     *zap.Logger
	metrics *metrics.Collector
	classes *models.OutputClassSet

	mu     sync.Mutex
	engine inference.Engine
}

// New materializes the weights, loads the engine and returns a ready Model.
//
// Arguments:
//   - opts: WithLoader is required. The rest override the weights, logger and metrics.
//
// Returns:
//   - *Model: A model owning exactly one engine.
//   - error: A load failure. Nothing is retained on failure.
//
// @example
// m, err := detector.New(detector.WithLoader(detectors.Load), detector.WithLogger(logger))
//
//	if err != nil {
//	    return err
//	}
//
// defer m.Close()
// out, err := m.Run(jpegBytes, 0.25, 0.45)
func New(opts ...Option) (*Model, error) {
	o := options{
		weights: assets.Weights,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		return nil, ErrNoLoader
	}

	size := string(assets.ModelSize)
	id := uuid.NewString()
	log := logging.OrNop(o.logger).With(zap.String("model_id", id))

	weights, err := o.weights()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model weights")
	}
	engine, err := o.loader(weights, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model")
	}
	log.Debug("model loaded", zap.String("size", size), zap.Int("weights_bytes", len(weights)))

	return &Model{
		id:      id,
		log:     log,
		metrics: o.metrics,
		classes: models.YOLOClasses,
		engine:  engine,
	}, nil
}

// ID returns the model's instance identifier, also attached to its log entries.
func (m *Model) ID() string { return m.id }

// Detect runs the engine and returns the flattened detections.
//
// A failure leaves the Model usable for later calls.
func (m *Model) Detect(image []byte, conf, iou float32) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil, ErrClosed
	}

	m.log.Info(MsgInferenceStart)
	start := time.Now()
	buckets, err := m.engine.Run(image, conf, iou)
	m.metrics.ObserveRun(start, err)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	m.log.Info(MsgInferenceDone, zap.Duration("elapsed", time.Since(start)))

	dets, err := Flatten(buckets, m.classes)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	for _, d := range dets {
		m.metrics.ObserveDetection(d.Class)
	}
	return dets, nil
}

// Run detects objects in image and returns them as a JSON array.
//
// Arguments:
//   - image: Encoded image bytes, passed to the engine as-is.
//   - conf: Confidence threshold, forwarded verbatim.
//   - iou: NMS IoU threshold, forwarded verbatim.
//
// Returns:
//   - string: JSON list of [class_name, bbox] pairs, "[]" when nothing is found.
//   - error: An inference or serialization failure.
func (m *Model) Run(image []byte, conf, iou float32) (string, error) {
	dets, err := m.Detect(image, conf, iou)
	if err != nil {
		return "", err
	}
	out, err := Marshal(dets)
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize detections")
	}
	return out, nil
}

// Close releases the engine. Calling Close again is a no-op.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil
	}
	err := m.engine.Close()
	m.engine = nil
	return err
}
