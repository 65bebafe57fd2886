package analyzer

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

var (
	stripColor   = color.NRGBA{R: 0, G: 200, B: 0, A: 255}
	controlColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	testColor    = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
)

const outlineWidth = 2

// Annotate draws the strip and both bands onto a copy of img
func Annotate(img image.Image, o *Outcome) *image.NRGBA {
	out := imaging.Clone(img)
	if o == nil {
		return out
	}
	drawOutline(out, o.Control.Bounds, controlColor)
	drawOutline(out, o.Test.Bounds, testColor)
	drawOutline(out, o.Strip, stripColor)
	return out
}

// EncodeArtifact writes img as JPEG
func EncodeArtifact(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(90))
}

// drawOutline paints the inner border of r, clipped to the image
func drawOutline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for i := 0; i < outlineWidth; i++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, r.Min.Y+i, c)
			img.SetNRGBA(x, r.Max.Y-1-i, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetNRGBA(r.Min.X+i, y, c)
			img.SetNRGBA(r.Max.X-1-i, y, c)
		}
	}
}
