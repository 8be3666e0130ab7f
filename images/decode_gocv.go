//go:build gocv

package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Decode turns encoded bytes into an Image with OpenCV's imdecode.
//
// OpenCV accepts every container it was built with, so the format is taken
// from the Go decoders when they recognize the header and left empty
// otherwise.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("failed to decode image: empty matrix")
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert matrix to image")
	}

	format, _, _ := DetectFormat(data)
	return newImage(format, img), nil
}
