package images

import (
	"image"

	"github.com/pkg/errors"
)

// ToCHW writes img into dst as planar RGB floats in [0, 1].
//
// dst must hold at least 3*W*H values; the R plane comes first.
func ToCHW(img *image.RGBA, dst []float32) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	if len(dst) < 3*plane {
		return errors.Errorf("tensor too small: has %d, needs %d", len(dst), 3*plane)
	}

	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			p := row[x*4 : x*4+3]
			dst[i] = float32(p[0]) / 255.0
			dst[plane+i] = float32(p[1]) / 255.0
			dst[2*plane+i] = float32(p[2]) / 255.0
		}
	}
	return nil
}
