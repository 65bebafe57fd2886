package vision

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// fixed binomial kernels used for the smallest odd sizes
var smallGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianKernel returns the normalised 1-D kernel of an odd size with the
// default sigma 0.3*((size-1)/2-1)+0.8, the weighting OpenCV uses when no
// sigma is given. Sizes up to 7 use fixed binomial weights.
func GaussianKernel(size int) []float64 {
	if k, ok := smallGaussianKernels[size]; ok {
		return append([]float64(nil), k...)
	}
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	k := make([]float64, size)
	sum := 0.0
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// AdaptiveThreshold returns an inverted binary mask: a pixel is foreground
// when it is at least c levels darker than the Gaussian-weighted mean of its
// blockSize neighbourhood. Borders replicate the edge pixels.
func AdaptiveThreshold(gray *image.Gray, blockSize int, c float64) *Mask {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := NewMask(w, h)
	if w == 0 || h == 0 {
		return mask
	}

	mean := gaussianBlur(gray, blockSize)
	mb := mean.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
			local := float64(mean.Pix[mean.PixOffset(mb.Min.X+x, mb.Min.Y+y)])
			if v <= local-c {
				mask.Bits[y*w+x] = true
			}
		}
	}
	return mask
}

// gaussianBlur runs the separable size x size kernel with replicated
// borders. Each pass rounds to the nearest level.
func gaussianBlur(gray *image.Gray, size int) *image.RGBA {
	weights := GaussianKernel(size)
	k := convolution.NewKernel(len(weights), 1)
	copy(k.Matrix, weights)

	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	out := convolution.Convolve(gray, k, opts)
	return convolution.Convolve(out, k.Transposed(), opts)
}
