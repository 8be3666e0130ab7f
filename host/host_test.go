package host

import (
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-yolo-ffi/common"
	"github.com/nvr-ai/go-yolo-ffi/detector"
	"github.com/nvr-ai/go-yolo-ffi/inference"
	"github.com/nvr-ai/go-yolo-ffi/inference/providers"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// fakeLoader serves engines that fail on the literal image "bad" and report
// one person otherwise.
func fakeLoader(closed *int) inference.Loader {
	return func(weights []byte, size string) (inference.Engine, error) {
		return &fakeEngine{closed: closed}, nil
	}
}

type fakeEngine struct {
	closed *int
}

func (f *fakeEngine) Run(image []byte, conf, iou float32) ([][]common.Bbox, error) {
	if string(image) == "bad" {
		return nil, errors.New("bad image")
	}
	out := make([][]common.Bbox, models.NumClasses)
	out[0] = []common.Bbox{{Xmin: 1, Ymin: 2, Xmax: 3, Ymax: 4, Confidence: 0.9}}
	return out, nil
}

func (f *fakeEngine) Close() error {
	if f.closed != nil {
		*f.closed++
	}
	return nil
}

func newTestRuntime(closed *int) *Runtime {
	return NewRuntime(detector.WithWeights([]byte("w")), detector.WithLoader(fakeLoader(closed)))
}

// go test -v -run TestRegistryLifecycle ./host
func TestRegistryLifecycle(t *testing.T) {
	closed := 0
	rt := newTestRuntime(&closed)

	h, err := rt.Open()
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, rt.Len())

	out, err := rt.Run(h, []byte("img"), 0.25, 0.45)
	require.NoError(t, err)
	assert.Contains(t, out, `"person"`)

	_, err = rt.Run(h, []byte("bad"), 0.25, 0.45)
	require.Error(t, err)
	assert.Contains(t, Exception(err), "bad image")

	_, err = rt.Run(h, []byte("img"), 0.25, 0.45)
	require.NoError(t, err, "handle stays Ready after a failed run")

	require.NoError(t, rt.Release(h))
	assert.Equal(t, 1, closed)
	assert.Equal(t, 0, rt.Len())

	_, err = rt.Run(h, []byte("img"), 0.25, 0.45)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, rt.Release(h), ErrUnknownHandle)
}

func TestRegistryIndependentHandles(t *testing.T) {
	closed := 0
	rt := newTestRuntime(&closed)

	a, err := rt.Open()
	require.NoError(t, err)
	b, err := rt.Open()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	var wg sync.WaitGroup
	for _, h := range []Handle{a, b, a, b} {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			_, err := rt.Run(h, []byte("img"), 0.25, 0.45)
			assert.NoError(t, err)
		}(h)
	}
	wg.Wait()

	require.NoError(t, rt.Release(a))
	_, err = rt.Run(b, []byte("img"), 0.25, 0.45)
	assert.NoError(t, err, "releasing one handle leaves the other Ready")

	rt.Close()
	assert.Equal(t, 2, closed)
	assert.Zero(t, rt.Len())
}

func TestRegistryOpenFailure(t *testing.T) {
	r := NewRegistry(func(*zap.Logger) (*detector.Model, error) {
		return nil, errors.New("weights not embedded")
	}, nil)

	_, err := r.Open()
	require.Error(t, err)
	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "new", he.Op)
	assert.Equal(t, "weights not embedded", Exception(err))
	assert.Zero(t, r.Len())
}

func TestConsoleBridge(t *testing.T) {
	rt := newTestRuntime(nil)

	var lines []string
	rt.SetConsole(func(level zapcore.Level, line string) {
		assert.Equal(t, zapcore.InfoLevel, level)
		lines = append(lines, line)
	})

	h, err := rt.Open()
	require.NoError(t, err)
	_, err = rt.Run(h, []byte("img"), 0.25, 0.45)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], detector.MsgInferenceStart), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], detector.MsgInferenceDone), lines[1])
	assert.Contains(t, lines[0], "model_id")
	assert.NotContains(t, lines[0], "\n")

	lines = nil
	_, err = rt.Run(h, []byte("bad"), 0.25, 0.45)
	require.Error(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], detector.MsgInferenceStart))
}

func TestConfigure(t *testing.T) {
	rt := newTestRuntime(nil)

	require.NoError(t, rt.Configure([]byte("runtime:\n  intra_op_threads: 2\nlogging:\n  level: warn\n")))
	assert.Equal(t, 2, rt.Config().Runtime.IntraOpThreads)

	var lines []string
	rt.SetConsole(func(_ zapcore.Level, line string) { lines = append(lines, line) })
	h, err := rt.Open()
	require.NoError(t, err)
	_, err = rt.Run(h, []byte("img"), 0.25, 0.45)
	require.NoError(t, err)
	assert.Empty(t, lines, "info messages are filtered at warn")

	err = rt.Configure([]byte("runtime:\n  graph_optimization: turbo\n"))
	require.Error(t, err)
	assert.Equal(t, 2, rt.Config().Runtime.IntraOpThreads, "a bad config leaves the old one active")

	require.NoError(t, rt.Configure(nil))
	assert.Equal(t, providers.GraphOptimizationExtended, rt.Config().Runtime.GraphOptimization)
}

func TestRuntimeMetrics(t *testing.T) {
	rt := newTestRuntime(nil)

	a, err := rt.Open()
	require.NoError(t, err)
	b, err := rt.Open()
	require.NoError(t, err)

	_, err = rt.Run(a, []byte("img"), 0.25, 0.45)
	require.NoError(t, err)
	_, err = rt.Run(b, []byte("img"), 0.25, 0.45)
	require.NoError(t, err)
	_, err = rt.Run(b, []byte("bad"), 0.25, 0.45)
	require.Error(t, err)

	out, err := rt.Metrics()
	require.NoError(t, err)
	assert.Contains(t, out, `yolo_runs_total{outcome="success"} 2`, "handles share one collector")
	assert.Contains(t, out, `yolo_runs_total{outcome="failure"} 1`)
	assert.Contains(t, out, `yolo_detections_total{class="person"} 2`)

	other, err := NewRuntime().Metrics()
	require.NoError(t, err)
	assert.NotContains(t, other, "yolo_runs_total{", "runtimes do not share registries")
}

func TestClassNames(t *testing.T) {
	names := NewRuntime().ClassNames()
	require.Len(t, names, 80)
	assert.Equal(t, "person", names[0])
}

func TestException(t *testing.T) {
	assert.Equal(t, "", Exception(nil))
	assert.Equal(t, "plain", Exception(errors.New("plain")))
	assert.Equal(t, "run: boom", wrap("run", errors.New("boom")).Error())
	assert.Nil(t, wrap("run", nil))
}
