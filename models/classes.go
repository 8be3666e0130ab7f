package models

import "fmt"

// NumClasses is the number of labels the COCO-trained YOLO heads emit.
const NumClasses = 80

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full, ordered list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Family ModelFamily
	// Classes in head order. Classes[i].Index == i.
	Classes []OutputClass
	// nameToIdx for fast lookup by name.
	nameToIdx map[string]int
}

// newClassSet builds a set from names given in head order.
func newClassSet(family ModelFamily, names ...string) *OutputClassSet {
	set := &OutputClassSet{
		Family:    family,
		Classes:   make([]OutputClass, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name}
		set.nameToIdx[name] = i
	}
	return set
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the label at idx.
//
// It panics when idx is out of range: callers index with values produced by a
// head of the same width, so a miss is a programming error.
func (s *OutputClassSet) Name(idx int) string {
	if idx < 0 || idx >= len(s.Classes) {
		panic(fmt.Sprintf("models: class index %d out of range [0,%d)", idx, len(s.Classes)))
	}
	return s.Classes[idx].Name
}

// Index returns the position of name in the set.
func (s *OutputClassSet) Index(name string) (int, bool) {
	idx, ok := s.nameToIdx[name]
	return idx, ok
}

// Names returns a copy of the labels in head order.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// YOLOClasses is the 80 COCO classes without a background entry.
// YOLO models index directly into this zero-based list.
var YOLOClasses = newClassSet(ModelFamilyYOLO,
	"person", "bicycle", "car", "motorcycle", "airplane",
	"bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird",
	"cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat",
	"baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed",
	"dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven",
	"toaster", "sink", "refrigerator", "book", "clock",
	"vase", "scissors", "teddy bear", "hair drier", "toothbrush",
)

// ClassName returns the YOLO COCO label for idx. See OutputClassSet.Name.
func ClassName(idx int) string {
	return YOLOClasses.Name(idx)
}

// ClassIndex returns the YOLO COCO index for name.
func ClassIndex(name string) (int, bool) {
	return YOLOClasses.Index(name)
}
