package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-yolo-ffi/common"
)

// NonMaximumSuppression filters each class bucket in place.
//
// Every bucket is sorted by descending confidence, then a box is kept only if
// its IoU with each box already kept is at most iouThreshold. Buckets never
// interact, so boxes of different classes may overlap freely.
//
// Arguments:
//   - buckets: Per-class detections. Modified in place.
//   - iouThreshold: Maximum IoU allowed between two kept boxes of one class.
//
// @example
// buckets := NewBuckets(80)
// buckets[0] = []common.Bbox{a, b, c}
// NonMaximumSuppression(buckets, 0.45)
func NonMaximumSuppression(buckets Buckets, iouThreshold float32) {
	for c, boxes := range buckets {
		buckets[c] = suppress(boxes, iouThreshold)
	}
}

func suppress(boxes []common.Bbox, iouThreshold float32) []common.Bbox {
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	kept := 0
	for i := range boxes {
		drop := false
		for k := 0; k < kept; k++ {
			if boxes[k].IoU(boxes[i]) > iouThreshold {
				drop = true
				break
			}
		}
		if !drop {
			boxes[kept], boxes[i] = boxes[i], boxes[kept]
			kept++
		}
	}
	return boxes[:kept]
}
