// Package vision holds the raster primitives used by the strip pipeline:
// grayscale planes, binary masks, edge and threshold operators, contour
// tracing, polygon approximation and 8-bit HSV conversion.
package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ToGray converts img to an 8-bit luminance plane anchored at (0,0) using
// BT.601 weights.
func ToGray(img image.Image) *image.Gray {
	g := imaging.Grayscale(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// HSV8 converts an 8-bit RGB triple to the 8-bit HSV scale used by OpenCV:
// hue in [0,180], saturation and value in [0,255].
func HSV8(r, g, b uint8) (h, s, v float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hh, ss, vv := c.Hsv()
	return math.Round(hh / 2), math.Round(ss * 255), math.Round(vv * 255)
}

// Mask is a binary raster with origin (0,0).
type Mask struct {
	Width, Height int
	Bits          []bool
}

// NewMask allocates an all-background mask.
func NewMask(w, h int) *Mask {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Mask{Width: w, Height: h, Bits: make([]bool, w*h)}
}

// At reports whether (x,y) is foreground. Points outside the mask are
// background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set assigns (x,y); points outside the mask are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
