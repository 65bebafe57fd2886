// Package testutil draws synthetic strip photos for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Geometry of the synthetic photo
var (
	ImageSize   = image.Pt(400, 200)
	StripRect   = image.Rect(50, 70, 350, 120)
	ControlLine = image.Rect(60, 80, 340, 86)
	TestLine    = image.Rect(60, 92, 340, 98)
)

var (
	background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	stripBody  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	lineColor  = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
)

// DrawStrip renders a light gray strip on white with optional magenta
// control and test lines
func DrawStrip(control, test bool) *image.NRGBA {
	img := imaging.New(ImageSize.X, ImageSize.Y, background)
	fill(img, StripRect, stripBody)
	if control {
		fill(img, ControlLine, lineColor)
	}
	if test {
		fill(img, TestLine, lineColor)
	}
	return img
}

// Blank renders a uniform white image
func Blank() *image.NRGBA {
	return imaging.New(ImageSize.X, ImageSize.Y, background)
}

// EncodePNG returns img as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEG returns img as JPEG bytes
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}
