package detector

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo-ffi/common"
	"github.com/nvr-ai/go-yolo-ffi/models"
)

// Detection pairs a class label with its box.
type Detection struct {
	Class string
	Box   common.Bbox
}

// MarshalJSON encodes the pair as a two-element array: ["person", {"xmin":...}].
func (d Detection) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{d.Class, d.Box})
}

// UnmarshalJSON decodes the two-element array form.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.Errorf("detection must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &d.Class); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &d.Box)
}

// Flatten turns per-class buckets into one list ordered by ascending class
// index, keeping the engine's order inside each class.
//
// The number of buckets must equal the size of classes.
func Flatten(buckets [][]common.Bbox, classes *models.OutputClassSet) ([]Detection, error) {
	if len(buckets) != classes.Len() {
		return nil, errors.Errorf("engine returned %d class buckets, expected %d", len(buckets), classes.Len())
	}

	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	out := make([]Detection, 0, n)
	for class, bucket := range buckets {
		name := classes.Name(class)
		for _, box := range bucket {
			out = append(out, Detection{Class: name, Box: box})
		}
	}
	return out, nil
}

// Marshal renders detections in the wire format. An empty list is "[]".
func Marshal(dets []Detection) (string, error) {
	if dets == nil {
		dets = []Detection{}
	}
	raw, err := json.Marshal(dets)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
