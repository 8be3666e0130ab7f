// Package inference - Detection engine contract consumed by the adapter.
package inference

import "github.com/nvr-ai/go-yolo-ffi/common"

// Engine runs object detection over one encoded image.
//
// Run decodes image, applies the confidence threshold conf and per-class NMS
// with iou, and returns one bucket per class of the model's label table in
// class-index order. Box order inside a bucket is engine defined and must be
// preserved by callers. An Engine is not required to be safe for concurrent use.
type Engine interface {
	Run(image []byte, conf, iou float32) ([][]common.Bbox, error)
	Close() error
}

// Loader builds an Engine from serialized weights and a model size tag such as "n".
type Loader func(weights []byte, sizeTag string) (Engine, error)

// EngineFunc adapts a plain function to Engine. Close is a no-op.
type EngineFunc func(image []byte, conf, iou float32) ([][]common.Bbox, error)

// Run calls f.
func (f EngineFunc) Run(image []byte, conf, iou float32) ([][]common.Bbox, error) {
	return f(image, conf, iou)
}

// Close implements Engine.
func (f EngineFunc) Close() error { return nil }
