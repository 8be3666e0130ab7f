// Package models - Class tables and architecture variants for the YOLOv8 detector.
package models

import "github.com/pkg/errors"

// ModelFamily is the family of models.
type ModelFamily string

const (
	// ModelFamilyYOLO is the YOLO model family (80 COCO classes, no background).
	ModelFamilyYOLO ModelFamily = "yolo"
)

// Size is a YOLOv8 variant tag.
type Size string

const (
	SizeNano   Size = "n"
	SizeSmall  Size = "s"
	SizeMedium Size = "m"
	SizeLarge  Size = "l"
	SizeXLarge Size = "x"
)

// Multiples are the depth, width and ratio multipliers that scale the YOLOv8
// backbone for a given Size.
type Multiples struct {
	Depth float64
	Width float64
	Ratio float64
}

// Filters returns the channel counts of the three backbone stages.
func (m Multiples) Filters() (int, int, int) {
	return int(256 * m.Width), int(512 * m.Width), int(512 * m.Width * m.Ratio)
}

// Sizes lists the variants from smallest to largest.
func Sizes() []Size {
	return []Size{SizeNano, SizeSmall, SizeMedium, SizeLarge, SizeXLarge}
}

var sizeMultiples = map[Size]Multiples{
	SizeNano:   {Depth: 0.33, Width: 0.25, Ratio: 2.0},
	SizeSmall:  {Depth: 0.33, Width: 0.50, Ratio: 2.0},
	SizeMedium: {Depth: 0.67, Width: 0.75, Ratio: 1.5},
	SizeLarge:  {Depth: 1.00, Width: 1.00, Ratio: 1.0},
	SizeXLarge: {Depth: 1.00, Width: 1.25, Ratio: 1.0},
}

// ParseSize validates a variant tag.
//
// Arguments:
//   - tag: One of "n", "s", "m", "l", "x".
//
// Returns:
//   - The Size and its Multiples, or an error for an unknown tag.
func ParseSize(tag string) (Size, Multiples, error) {
	m, ok := sizeMultiples[Size(tag)]
	if !ok {
		return "", Multiples{}, errors.Errorf("unsupported model size %q", tag)
	}
	return Size(tag), m, nil
}

// String returns the weight file stem for the size, e.g. "yolov8n".
func (s Size) String() string {
	return "yolov8" + string(s)
}
