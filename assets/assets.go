// Package assets embeds the model weights into the binary.
package assets

import (
	"embed"
	"io/fs"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo-ffi/models"
)

// ModelSize is the variant whose weights ship with the module.
const ModelSize = models.SizeNano

//go:embed weights
var weights embed.FS

// ErrWeightsMissing is returned when the requested weight file was not embedded.
var ErrWeightsMissing = errors.New("weights not embedded")

// WeightsFile returns the embedded path for a size, e.g. "weights/yolov8n.onnx".
func WeightsFile(size models.Size) string {
	return "weights/" + size.String() + ".onnx"
}

// Weights returns a fresh copy of the embedded weights for ModelSize.
func Weights() ([]byte, error) {
	return weightsFor(ModelSize)
}

func weightsFor(size models.Size) ([]byte, error) {
	name := WeightsFile(size)
	data, err := weights.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrWeightsMissing, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrWeightsMissing, "%s is empty", name)
	}
	return data, nil
}

// Available reports whether weights for ModelSize were embedded.
func Available() bool {
	return Embedded(ModelSize)
}

// Embedded reports whether weights for size were embedded.
func Embedded(size models.Size) bool {
	_, err := fs.Stat(weights, WeightsFile(size))
	return err == nil
}
