package vision

import (
	"image"
	"math"
)

const (
	tan22 = 0.41421356237309503 // tan(22.5°)
	tan67 = 2.414213562373095   // tan(67.5°)
)

// gradient sectors for non-maximum suppression
const (
	sectorHorizontal uint8 = iota // compare left/right
	sectorVertical                // compare up/down
	sectorFalling                 // compare up-left/down-right
	sectorRising                  // compare up-right/down-left
)

// Canny marks the edge pixels of gray. It follows the OpenCV formulation:
// 3x3 Sobel derivatives with replicated borders, L1 gradient magnitude,
// four-sector non-maximum suppression and hysteresis, where pixels above
// high seed edges that then grow through 8-connected pixels above low.
func Canny(gray *image.Gray, low, high float64) *Mask {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	edges := NewMask(w, h)
	if w == 0 || h == 0 {
		return edges
	}
	if low > high {
		low, high = high, low
	}

	px := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	mag := make([]float64, w*h)
	sector := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			i := y*w + x
			mag[i] = math.Abs(gx) + math.Abs(gy)
			sector[i] = gradientSector(gx, gy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none uint8 = iota
		weak
		strong
	)
	class := make([]uint8, w*h)
	stack := make([]int, 0, 256)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			var keep bool
			switch sector[i] {
			case sectorHorizontal:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case sectorVertical:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			case sectorFalling:
				keep = m > magAt(x-1, y-1) && m > magAt(x+1, y+1)
			default:
				keep = m > magAt(x+1, y-1) && m > magAt(x-1, y+1)
			}
			if !keep {
				continue
			}
			if m > high {
				class[i] = strong
				edges.Bits[i] = true
				stack = append(stack, i)
			} else {
				class[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for _, d := range neighbours {
			nx, ny := x+d.X, y+d.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			j := ny*w + nx
			if class[j] == weak && !edges.Bits[j] {
				edges.Bits[j] = true
				stack = append(stack, j)
			}
		}
	}

	return edges
}

func gradientSector(gx, gy float64) uint8 {
	ax, ay := math.Abs(gx), math.Abs(gy)
	switch {
	case ay <= ax*tan22:
		return sectorHorizontal
	case ay >= ax*tan67:
		return sectorVertical
	case (gx > 0) == (gy > 0):
		return sectorFalling
	default:
		return sectorRising
	}
}
