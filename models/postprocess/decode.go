package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo-ffi/common"
	"github.com/nvr-ai/go-yolo-ffi/images"
)

// DecodeYOLOv8 converts a YOLOv8 detection head into per-class buckets.
//
// The head is laid out as [4+numClasses, anchors]: rows 0-3 hold cx, cy, w, h
// in canvas pixels and the remaining rows hold class scores. Each anchor
// contributes at most one box, for its best-scoring class, and only when that
// score is strictly greater than conf. Boxes are mapped back into the source
// image through lb and clamped to its bounds. NMS is not applied.
//
// Arguments:
//   - output: Raw head values. Not modified.
//   - numClasses: Width of the class section.
//   - conf: Confidence threshold.
//   - lb: Placement of the source image on the model canvas.
//
// Returns:
//   - One bucket per class, in anchor order.
//   - An error when output does not match the head layout.
func DecodeYOLOv8(output []float32, numClasses int, conf float32, lb images.LetterboxInfo) (Buckets, error) {
	rows := 4 + numClasses
	if numClasses <= 0 || len(output) == 0 || len(output)%rows != 0 {
		return nil, errors.Errorf("head of %d values does not divide into %d rows", len(output), rows)
	}
	anchors := len(output) / rows

	backing := make([]float32, len(output))
	copy(backing, output)
	t := tensor.New(tensor.WithShape(rows, anchors), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose head")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "failed to materialize transposed head")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("unexpected head dtype %v", t.Dtype())
	}

	w, h := float32(lb.SrcWidth), float32(lb.SrcHeight)
	buckets := NewBuckets(numClasses)
	for a := 0; a < anchors; a++ {
		row := data[a*rows : (a+1)*rows]

		class, score := 0, row[4]
		for c := 1; c < numClasses; c++ {
			if row[4+c] > score {
				class, score = c, row[4+c]
			}
		}
		if score <= conf {
			continue
		}

		box := common.NewBboxFromCenter(row[0], row[1], row[2], row[3], score)
		box.Xmin, box.Ymin = lb.Unproject(box.Xmin, box.Ymin)
		box.Xmax, box.Ymax = lb.Unproject(box.Xmax, box.Ymax)
		buckets[class] = append(buckets[class], box.Clamp(w, h))
	}
	return buckets, nil
}
