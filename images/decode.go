//go:build !gocv

package images

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
)

// Decode turns encoded bytes into an Image using the pure-Go decoders.
//
// Supported containers are jpeg, png, gif, bmp, tiff and webp.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	return newImage(ImageFormat(name), img), nil
}
