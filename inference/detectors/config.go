// Package detectors - ONNX Runtime backed YOLOv8 detection engine.
package detectors

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo-ffi/inference/providers"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// Config configures the YOLOv8 engine.
type Config struct {
	// SharedLibraryPath locates the ONNX Runtime library. Empty uses the
	// environment or the platform default.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`

	// Session controls CPU threading and graph optimization.
	Session providers.SessionConfig `json:"session" yaml:"session"`

	// InputSize is the side of the square model input. Must be a multiple of 32.
	InputSize int `json:"input_size" yaml:"input_size"`

	// NumClasses is the width of the class section of the head.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
}

// DefaultConfig returns the configuration used by Load.
//
// Returns:
//   - Config: 640x640 input, 80 COCO classes, extended graph optimization.
//
// @example
// cfg := DefaultConfig()
// cfg.Session.IntraOpThreads = 4
// engine, err := NewLoader(cfg)(weights, "n")
func DefaultConfig() Config {
	return Config{
		Session:    providers.DefaultSessionConfig(),
		InputSize:  640,
		NumClasses: models.NumClasses,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return errors.Errorf("input_size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.NumClasses <= 0 {
		return errors.Errorf("num_classes must be positive, got %d", c.NumClasses)
	}
	return c.Session.Validate()
}

// anchors returns the number of predictions a YOLOv8 head emits for a square
// input of the given size: one per cell at strides 8, 16 and 32.
func anchors(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := size / stride
		n += cells * cells
	}
	return n
}
