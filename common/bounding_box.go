// Package common - Detection records shared by the engine, the adapter and the host shim.
package common

import (
	"fmt"

	"github.com/chewxy/math32"
)

// KeyPoint is a pose landmark attached to a detection.
type KeyPoint struct {
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Mask float32 `json:"mask"`
}

// Bbox is an axis-aligned detection box in input-image pixel coordinates.
//
// The JSON form is the wire format consumed by the host:
//
//	{"xmin":..,"ymin":..,"xmax":..,"ymax":..,"confidence":..}
//
// Keypoints are only emitted when the engine produced any.
type Bbox struct {
	Xmin       float32    `json:"xmin"`
	Ymin       float32    `json:"ymin"`
	Xmax       float32    `json:"xmax"`
	Ymax       float32    `json:"ymax"`
	Confidence float32    `json:"confidence"`
	Keypoints  []KeyPoint `json:"keypoints,omitempty"`
}

// NewBboxFromCenter builds a box from the center/size encoding emitted by YOLO heads.
//
// Arguments:
//   - cx, cy: Box center.
//   - w, h: Box width and height.
//   - confidence: Class score.
//
// Returns:
//   - The corner-encoded Bbox.
//
// @example
// b := NewBboxFromCenter(50, 50, 20, 10, 0.9) // {40 45 60 55 0.9}
func NewBboxFromCenter(cx, cy, w, h, confidence float32) Bbox {
	return Bbox{
		Xmin:       cx - w/2,
		Ymin:       cy - h/2,
		Xmax:       cx + w/2,
		Ymax:       cy + h/2,
		Confidence: confidence,
	}
}

// Width returns xmax - xmin.
func (b Bbox) Width() float32 { return b.Xmax - b.Xmin }

// Height returns ymax - ymin.
func (b Bbox) Height() float32 { return b.Ymax - b.Ymin }

// Area returns the inclusive pixel area, (w+1)*(h+1).
func (b Bbox) Area() float32 {
	return (b.Width() + 1) * (b.Height() + 1)
}

// IoU calculates the Intersection over Union between two boxes.
//
// Coordinates are treated as inclusive pixel indices, so a box whose corners
// coincide still covers one pixel. NMS decisions depend on this convention.
//
// Arguments:
//   - other: The box to compare against.
//
// Returns:
//   - The IoU value in [0, 1].
//
// @example
// a := Bbox{Xmin: 0, Ymin: 0, Xmax: 9, Ymax: 9}
// b := Bbox{Xmin: 5, Ymin: 0, Xmax: 14, Ymax: 9}
// iou := a.IoU(b) // 50 / 150
func (b Bbox) IoU(other Bbox) float32 {
	ix1 := math32.Max(b.Xmin, other.Xmin)
	iy1 := math32.Max(b.Ymin, other.Ymin)
	ix2 := math32.Min(b.Xmax, other.Xmax)
	iy2 := math32.Min(b.Ymax, other.Ymax)
	iw := math32.Max(0, ix2-ix1+1)
	ih := math32.Max(0, iy2-iy1+1)
	inter := iw * ih
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Clamp limits the box to [0, width] x [0, height].
func (b Bbox) Clamp(width, height float32) Bbox {
	out := b
	out.Xmin = clamp(b.Xmin, 0, width)
	out.Xmax = clamp(b.Xmax, 0, width)
	out.Ymin = clamp(b.Ymin, 0, height)
	out.Ymax = clamp(b.Ymax, 0, height)
	return out
}

func (b Bbox) String() string {
	return fmt.Sprintf("(%.1f, %.1f), (%.1f, %.1f) confidence %.3f",
		b.Xmin, b.Ymin, b.Xmax, b.Ymax, b.Confidence)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
