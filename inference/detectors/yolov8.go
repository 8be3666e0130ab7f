package detectors

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-yolo-ffi/common"
	"github.com/nvr-ai/go-yolo-ffi/images"
	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/inference/providers"
	"github.com/nvr-ai/go-yolo-ffi/models"
	"github.com/nvr-ai/go-yolo-ffi/models/postprocess"
)

var (
	// ErrUnknownSize is returned for a size tag outside n, s, m, l, x.
	ErrUnknownSize = errors.New("unknown model size")
	// ErrEmptyWeights is returned when the weight blob has no bytes.
	ErrEmptyWeights = errors.New("empty weights")
	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("engine is closed")
)

// YOLOv8 runs a YOLOv8 ONNX export on the CPU.
//
// The session binds one input and one output tensor, so Run calls are
// serialized with a mutex.
type YOLOv8 struct {
	cfg        Config
	numClasses int

	mu      sync.Mutex
	session *providers.Session
}

var _ inference.Engine = (*YOLOv8)(nil)

// Load builds a YOLOv8 engine with DefaultConfig. It satisfies inference.Loader.
func Load(weights []byte, sizeTag string) (inference.Engine, error) {
	return NewYOLOv8(DefaultConfig(), weights, sizeTag)
}

// NewLoader returns an inference.Loader bound to cfg.
func NewLoader(cfg Config) inference.Loader {
	return func(weights []byte, sizeTag string) (inference.Engine, error) {
		return NewYOLOv8(cfg, weights, sizeTag)
	}
}

// NewYOLOv8 validates the inputs, initializes ONNX Runtime and creates a session
// from the in-memory model.
//
// Arguments:
//   - cfg: Engine configuration.
//   - weights: Serialized ONNX model. Not retained after the session is built.
//   - sizeTag: YOLOv8 variant tag.
//
// Returns:
//   - *YOLOv8: A ready engine.
//   - error: A load failure.
func NewYOLOv8(cfg Config, weights []byte, sizeTag string) (*YOLOv8, error) {
	if _, _, err := models.ParseSize(sizeTag); err != nil {
		return nil, errors.Wrap(ErrUnknownSize, err.Error())
	}
	if len(weights) == 0 {
		return nil, ErrEmptyWeights
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}

	if err := providers.InitEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	io, err := providers.InspectModel(weights)
	if err != nil {
		return nil, err
	}

	if isStatic(io.InputShape) && (len(io.InputShape) != 4 ||
		io.InputShape[2] != int64(cfg.InputSize) || io.InputShape[3] != int64(cfg.InputSize)) {
		return nil, errors.Errorf("model input %v does not match input_size %d", io.InputShape, cfg.InputSize)
	}

	outputShape := ort.NewShape(1, int64(4+cfg.NumClasses), int64(anchors(cfg.InputSize)))
	if isStatic(io.OutputShape) {
		if len(io.OutputShape) != 3 || io.OutputShape[1] != int64(4+cfg.NumClasses) {
			return nil, errors.Errorf("model output %v does not match a %d-class YOLOv8 head",
				io.OutputShape, cfg.NumClasses)
		}
		outputShape = io.OutputShape
	}

	session, err := providers.NewSession(providers.NewSessionArgs{
		Model:       weights,
		InputName:   io.InputName,
		OutputName:  io.OutputName,
		InputShape:  ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize)),
		OutputShape: outputShape,
		Options:     cfg.Session,
	})
	if err != nil {
		return nil, err
	}

	return &YOLOv8{
		cfg:        cfg,
		numClasses: cfg.NumClasses,
		session:    session,
	}, nil
}

// Run implements inference.Engine.
func (y *YOLOv8) Run(image []byte, conf, iou float32) ([][]common.Bbox, error) {
	img, err := images.Decode(image)
	if err != nil {
		return nil, err
	}
	canvas, lb := images.Letterbox(img.Pixels, y.cfg.InputSize, images.PadGray)

	y.mu.Lock()
	defer y.mu.Unlock()

	if y.session == nil {
		return nil, ErrClosed
	}
	if err := images.ToCHW(canvas, y.session.Input.GetData()); err != nil {
		return nil, errors.Wrap(err, "failed to fill input tensor")
	}
	if err := y.session.Run(); err != nil {
		return nil, err
	}

	buckets, err := postprocess.DecodeYOLOv8(y.session.Output.GetData(), y.numClasses, conf, lb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode model output")
	}
	postprocess.NonMaximumSuppression(buckets, iou)
	return buckets, nil
}

// Close releases the session. Later Run calls fail with ErrClosed.
func (y *YOLOv8) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.session == nil {
		return nil
	}
	err := y.session.Close()
	y.session = nil
	return err
}

func isStatic(shape ort.Shape) bool {
	if len(shape) == 0 {
		return false
	}
	for _, d := range shape {
		if d <= 0 {
			return false
		}
	}
	return true
}
