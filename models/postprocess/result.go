// Package postprocess - Turns raw YOLO head tensors into per-class detections.
package postprocess

import "github.com/nvr-ai/go-yolo-ffi/common"

// Buckets holds detections grouped by class index. Buckets[i] belongs to
// class i of the model's label table.
type Buckets = [][]common.Bbox

// NewBuckets allocates one empty bucket per class.
func NewBuckets(numClasses int) Buckets {
	return make(Buckets, numClasses)
}

// Count returns the total number of detections across buckets.
func Count(buckets Buckets) int {
	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	return n
}
