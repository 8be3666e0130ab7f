package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-yolo-ffi/assets"
	"github.com/nvr-ai/go-yolo-ffi/common"
	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/inference/detectors"
	"github.com/nvr-ai/go-yolo-ffi/inference/providers"
	"github.com/nvr-ai/go-yolo-ffi/metrics"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// stubEngine returns canned buckets, or err, and records its calls.
type stubEngine struct {
	mu      sync.Mutex
	buckets [][]common.Bbox
	err     error
	calls   []call
	closed  int
}

type call struct {
	image     []byte
	conf, iou float32
}

func (s *stubEngine) Run(image []byte, conf, iou float32) ([][]common.Bbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{image: image, conf: conf, iou: iou})
	if s.err != nil {
		return nil, s.err
	}
	return s.buckets, nil
}

func (s *stubEngine) Close() error {
	s.closed++
	return nil
}

func buckets(fill map[int][]common.Bbox) [][]common.Bbox {
	out := make([][]common.Bbox, models.NumClasses)
	for class, boxes := range fill {
		out[class] = boxes
	}
	return out
}

func newStubModel(t *testing.T, engine inference.Engine, opts ...Option) *Model {
	t.Helper()
	loader := func(weights []byte, size string) (inference.Engine, error) { return engine, nil }
	m, err := New(append([]Option{WithWeights([]byte("weights")), WithLoader(loader)}, opts...)...)
	require.NoError(t, err)
	return m
}

var (
	personBox = common.Bbox{Xmin: 10, Ymin: 20, Xmax: 110, Ymax: 220, Confidence: 0.91}
	carBox    = common.Bbox{Xmin: 300, Ymin: 310, Xmax: 420, Ymax: 380, Confidence: 0.77}
	carBox2   = common.Bbox{Xmin: 30, Ymin: 31, Xmax: 42, Ymax: 38, Confidence: 0.5}
)

// go test -v -run TestNew ./detector
func TestNew(t *testing.T) {
	t.Run("loader receives weights and size tag", func(t *testing.T) {
		var gotWeights []byte
		var gotSize string
		loader := func(weights []byte, size string) (inference.Engine, error) {
			gotWeights, gotSize = weights, size
			return &stubEngine{}, nil
		}

		m, err := New(WithWeights([]byte("blob")), WithLoader(loader))
		require.NoError(t, err)
		assert.Equal(t, []byte("blob"), gotWeights)
		assert.Equal(t, "n", gotSize)
		assert.NotEmpty(t, m.ID())
	})

	t.Run("independent handles", func(t *testing.T) {
		loads := 0
		loader := func(weights []byte, size string) (inference.Engine, error) {
			loads++
			weights[0] = 'X'
			return &stubEngine{buckets: buckets(nil)}, nil
		}
		a, err := New(WithWeights([]byte("blob")), WithLoader(loader))
		require.NoError(t, err)
		b, err := New(WithWeights([]byte("blob")), WithLoader(loader))
		require.NoError(t, err)

		assert.Equal(t, 2, loads, "each handle loads its own engine")
		assert.NotEqual(t, a.ID(), b.ID())
	})

	t.Run("loader failure", func(t *testing.T) {
		loader := func([]byte, string) (inference.Engine, error) { return nil, assert.AnError }
		m, err := New(WithWeights([]byte("blob")), WithLoader(loader))
		assert.Nil(t, m)
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "failed to load model")
	})

	t.Run("loader is required", func(t *testing.T) {
		m, err := New(WithWeights([]byte("blob")))
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrNoLoader)
	})

	t.Run("missing embedded weights", func(t *testing.T) {
		if assets.Available() {
			t.Skip("weights are embedded")
		}
		loads := 0
		loader := func([]byte, string) (inference.Engine, error) {
			loads++
			return &stubEngine{}, nil
		}
		_, err := New(WithLoader(loader))
		assert.ErrorIs(t, err, assets.ErrWeightsMissing)
		assert.Zero(t, loads)
	})
}

func TestRunJSONShape(t *testing.T) {
	m := newStubModel(t, &stubEngine{buckets: buckets(map[int][]common.Bbox{
		0: {personBox},
		2: {carBox},
	})})

	out, err := m.Run([]byte("img"), 0.25, 0.45)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		["person", {"xmin":10,"ymin":20,"xmax":110,"ymax":220,"confidence":0.91}],
		["car",    {"xmin":300,"ymin":310,"xmax":420,"ymax":380,"confidence":0.77}]
	]`, out)

	var raw [][2]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	for _, pair := range raw {
		var name string
		require.NoError(t, json.Unmarshal(pair[0], &name))
		_, ok := models.ClassIndex(name)
		assert.True(t, ok, "unknown class %q", name)

		var box map[string]float64
		require.NoError(t, json.Unmarshal(pair[1], &box))
		for _, key := range []string{"xmin", "ymin", "xmax", "ymax", "confidence"} {
			assert.Contains(t, box, key)
		}
	}
}

func TestRunOrdering(t *testing.T) {
	// Car (class 2) bucket holds two boxes; the engine order must survive.
	m := newStubModel(t, &stubEngine{buckets: buckets(map[int][]common.Bbox{
		2:  {carBox2, carBox},
		0:  {personBox},
		79: {personBox},
	})})

	dets, err := m.Detect(nil, 0.25, 0.45)
	require.NoError(t, err)
	require.Len(t, dets, 4)

	assert.Equal(t, Detection{Class: "person", Box: personBox}, dets[0])
	assert.Equal(t, Detection{Class: "car", Box: carBox2}, dets[1])
	assert.Equal(t, Detection{Class: "car", Box: carBox}, dets[2])
	assert.Equal(t, "toothbrush", dets[3].Class)

	prev := -1
	for _, d := range dets {
		idx, _ := models.ClassIndex(d.Class)
		assert.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
}

func TestRunEmpty(t *testing.T) {
	m := newStubModel(t, &stubEngine{buckets: buckets(nil)})

	out, err := m.Run([]byte("gray"), 0.25, 0.45)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRunIdempotent(t *testing.T) {
	m := newStubModel(t, &stubEngine{buckets: buckets(map[int][]common.Bbox{0: {personBox}, 5: {carBox}})})

	first, err := m.Run([]byte("img"), 0.3, 0.5)
	require.NoError(t, err)
	second, err := m.Run([]byte("img"), 0.3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunForwardsArgumentsVerbatim(t *testing.T) {
	engine := &stubEngine{buckets: buckets(nil)}
	m := newStubModel(t, engine)

	img := []byte{0xde, 0xad}
	_, err := m.Run(img, -1, 7.5)
	require.NoError(t, err)

	require.Len(t, engine.calls, 1)
	assert.Equal(t, call{image: img, conf: -1, iou: 7.5}, engine.calls[0])
}

func TestRunErrorPassthrough(t *testing.T) {
	engine := &stubEngine{err: assert.AnError}
	m := newStubModel(t, engine)

	engine.err = errString("bad image")
	_, err := m.Run([]byte("garbage"), 0.25, 0.45)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")

	engine.err = nil
	engine.buckets = buckets(map[int][]common.Bbox{0: {personBox}})
	out, err := m.Run([]byte("img"), 0.25, 0.45)
	require.NoError(t, err, "a failed run must leave the model usable")
	assert.Contains(t, out, "person")
}

func TestRunWrongBucketCount(t *testing.T) {
	m := newStubModel(t, &stubEngine{buckets: make([][]common.Bbox, 3)})

	_, err := m.Run(nil, 0.25, 0.45)
	assert.ErrorContains(t, err, "engine returned 3 class buckets, expected 80")
	assert.Contains(t, fmt.Sprintf("%+v", err), "detector.Flatten", "errors carry a stack trace")
}

func TestRunLogBracket(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := &stubEngine{buckets: buckets(nil)}
	m := newStubModel(t, engine, WithLogger(zap.New(core)))

	_, err := m.Run(nil, 0.25, 0.45)
	require.NoError(t, err)

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, MsgInferenceStart, entries[0].Message)
	assert.Equal(t, MsgInferenceDone, entries[1].Message)
	assert.Equal(t, m.ID(), entries[0].ContextMap()["model_id"])

	engine.err = assert.AnError
	_, err = m.Run(nil, 0.25, 0.45)
	require.Error(t, err)

	entries = logs.TakeAll()
	require.Len(t, entries, 1, "no completion message after a failure")
	assert.Equal(t, MsgInferenceStart, entries[0].Message)
}

func TestClose(t *testing.T) {
	engine := &stubEngine{buckets: buckets(nil)}
	m := newStubModel(t, engine)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, engine.closed)

	_, err := m.Run(nil, 0.25, 0.45)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunMetrics(t *testing.T) {
	c, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := &stubEngine{buckets: buckets(map[int][]common.Bbox{0: {personBox, personBox}})}
	m := newStubModel(t, engine, WithMetrics(c))

	_, err = m.Run(nil, 0.25, 0.45)
	require.NoError(t, err)
	engine.err = assert.AnError
	_, _ = m.Run(nil, 0.25, 0.45)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RunsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RunsTotal.WithLabelValues(metrics.OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DetectionsTotal.WithLabelValues("person")))
}

func TestDetectionJSON(t *testing.T) {
	d := Detection{Class: "dog", Box: common.Bbox{Xmin: 1, Ymin: 2, Xmax: 3, Ymax: 4, Confidence: 0.5}}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `["dog",{"xmin":1,"ymin":2,"xmax":3,"ymax":4,"confidence":0.5}]`, string(raw))

	var back Detection
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`["dog"]`), &back))

	out, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

type errString string

func (e errString) Error() string { return string(e) }

// The engine stack (ONNX Runtime, gorgonia tensor) is linked into this test
// binary. Reaching the test body means its package init ran on this Go
// runtime without the moving-GC escape hatch.
func TestEngineStackInitializes(t *testing.T) {
	for _, env := range []string{"ASSUME_NO_MOVING_GC_UNSAFE", "ASSUME_NO_MOVING_GC_UNSAFE_RISK_IT_WITH"} {
		if os.Getenv(env) != "" {
			t.Skipf("%s is set", env)
		}
	}

	_, err := New(WithWeights(nil), WithLoader(detectors.Load))
	assert.ErrorIs(t, err, detectors.ErrEmptyWeights)
}

// embeddedModel loads the embedded weights on ONNX Runtime, skipping when
// either is missing:
//
// ONNXRUNTIME_SHARED_LIBRARY_PATH=/usr/lib/libonnxruntime.so go test -v -run TestEmbeddedModel ./detector
func embeddedModel(t *testing.T) *Model {
	t.Helper()
	if !assets.Available() {
		t.Skip("yolov8n.onnx is not embedded, run go generate ./assets")
	}
	if _, err := providers.ResolveSharedLibPath(os.Getenv(providers.SharedLibPathEnv)); err != nil {
		t.Skipf("ONNX Runtime unavailable: %v", err)
	}

	m, err := New(WithLoader(detectors.Load))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEmbeddedModelGrayImage(t *testing.T) {
	m := embeddedModel(t)

	img := image.NewRGBA(image.Rect(0, 0, 640, 640))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: 128}}, image.Point{}, draw.Src)

	out, err := m.Run(encodePNG(t, img), 0.99, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestEmbeddedModelPerson(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "person.jpg"))
	if errors.Is(err, fs.ErrNotExist) {
		t.Skip("testdata/person.jpg is missing, run go generate ./detector")
	}
	require.NoError(t, err)
	m := embeddedModel(t)

	dets, err := m.Detect(raw, 0.25, 0.45)
	require.NoError(t, err)
	require.NotEmpty(t, dets)
	assert.Equal(t, "person", dets[0].Class)

	out, err := m.Run(raw, 0.25, 0.45)
	require.NoError(t, err)
	var pairs []Detection
	require.NoError(t, json.Unmarshal([]byte(out), &pairs))
	assert.Equal(t, dets, pairs)
}

func TestEmbeddedModelBadImage(t *testing.T) {
	m := embeddedModel(t)

	_, err := m.Run([]byte("not an image"), 0.25, 0.45)
	assert.Error(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	_, err = m.Run(encodePNG(t, img), 0.25, 0.45)
	assert.NoError(t, err, "a failed run must leave the model usable")
}
