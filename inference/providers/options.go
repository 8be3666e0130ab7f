package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	GraphOptimizationDisabled GraphOptimization = "disabled"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

var graphOptimizationLevels = map[GraphOptimization]ort.GraphOptimizationLevel{
	GraphOptimizationDisabled: ort.GraphOptimizationLevelDisableAll,
	GraphOptimizationBasic:    ort.GraphOptimizationLevelEnableBasic,
	GraphOptimizationExtended: ort.GraphOptimizationLevelEnableExtended,
	GraphOptimizationAll:      ort.GraphOptimizationLevelEnableAll,
}

// Level returns the native level for g, or an error if g is unknown.
func (g GraphOptimization) Level() (ort.GraphOptimizationLevel, error) {
	level, ok := graphOptimizationLevels[g]
	if !ok {
		return 0, errors.Errorf("unknown graph optimization level %q", g)
	}
	return level, nil
}

// SessionConfig controls how the CPU execution provider runs a model.
type SessionConfig struct {
	// IntraOpThreads parallelizes work inside a node (e.g. matmul). 0 lets ORT decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes independent nodes. 0 lets ORT decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// GraphOptimization enables graph rewrites such as fusion and constant folding.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization"`
}

// DefaultSessionConfig returns the settings used when nothing is configured.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{GraphOptimization: GraphOptimizationExtended}
}

// Validate checks the thread counts and the optimization level.
func (c SessionConfig) Validate() error {
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.Errorf("thread counts must be >= 0, got intra=%d inter=%d",
			c.IntraOpThreads, c.InterOpThreads)
	}
	_, err := c.GraphOptimization.Level()
	return err
}

// NewSessionOptions builds native session options. The caller must Destroy them.
func (c SessionConfig) NewSessionOptions() (*ort.SessionOptions, error) {
	level, err := c.GraphOptimization.Level()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	if err := options.SetIntraOpNumThreads(c.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(c.InterOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}
	return options, nil
}
