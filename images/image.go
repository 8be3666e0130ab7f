// Package images - Decoding and geometry helpers that turn encoded bytes into model input.
package images

import (
	"bytes"
	"image"

	// Register the decoders image.Decode and image.DecodeConfig dispatch to.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats.
type ImageFormat string

// ImageFormat constants.
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
)

// ErrEmptyImage is returned when the buffer to decode has no bytes.
var ErrEmptyImage = errors.New("empty image buffer")

// Image is a decoded image plus the container format it came from.
type Image struct {
	// The format of the source bytes.
	Format ImageFormat `json:"format" yaml:"format"`
	// The decoded pixels.
	Pixels image.Image `json:"-" yaml:"-"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// DetectFormat sniffs the container format without decoding pixels.
//
// Arguments:
//   - data: Encoded image bytes.
//
// Returns:
//   - The format and the pixel dimensions, or an error if no registered decoder
//     recognizes the header.
func DetectFormat(data []byte) (ImageFormat, image.Point, error) {
	if len(data) == 0 {
		return "", image.Point{}, ErrEmptyImage
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", image.Point{}, errors.Wrap(err, "unrecognized image format")
	}
	return ImageFormat(name), image.Pt(cfg.Width, cfg.Height), nil
}

func newImage(format ImageFormat, img image.Image) *Image {
	b := img.Bounds()
	return &Image{Format: format, Pixels: img, Width: b.Dx(), Height: b.Dy()}
}
