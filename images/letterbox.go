package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
)

// PadGray is the fill value YOLO models are trained with for letterbox borders.
var PadGray = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// LetterboxInfo records how a source image was placed on the square canvas.
type LetterboxInfo struct {
	// Scale applied to the source image.
	Scale float32
	// Left and top padding in canvas pixels.
	PadX, PadY float32
	// Source image dimensions.
	SrcWidth, SrcHeight int
}

// Unproject maps a canvas coordinate back into the source image.
func (l LetterboxInfo) Unproject(x, y float32) (float32, float32) {
	return (x - l.PadX) / l.Scale, (y - l.PadY) / l.Scale
}

// Letterbox resizes img to fit a size x size canvas, keeping the aspect ratio
// and centering it on a fill-colored background.
//
// Arguments:
//   - img: The source image.
//   - size: Side of the square canvas.
//   - fill: Background color for the padding.
//
// Returns:
//   - The canvas and the placement needed to undo the transform.
//
// @example
// canvas, info := Letterbox(img, 640, PadGray)
// x, y := info.Unproject(320, 320) // center of the source image
func Letterbox(img image.Image, size int, fill color.Color) (*image.RGBA, LetterboxInfo) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math32.Min(float32(size)/float32(w), float32(size)/float32(h))
	nw := max(1, int(math32.Round(float32(w)*scale)))
	nh := max(1, int(math32.Round(float32(h)*scale)))

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)

	var resized image.Image = img
	if nw != w || nh != h {
		resized = resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)
	}

	padX := (size - nw) / 2
	padY := (size - nh) / 2
	dst := image.Rect(padX, padY, padX+nw, padY+nh)
	draw.Draw(canvas, dst, resized, resized.Bounds().Min, draw.Src)

	return canvas, LetterboxInfo{
		Scale:     scale,
		PadX:      float32(padX),
		PadY:      float32(padY),
		SrcWidth:  w,
		SrcHeight: h,
	}
}
