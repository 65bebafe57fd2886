package vision

import (
	"image"
	"slices"
)

// Contour is a closed outer border, listed clockwise from its top-left pixel.
type Contour []image.Point

// Moore neighbourhood, clockwise on screen starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const dirWest = 4

// FindExternalContours returns the outer border of every foreground
// component that is not nested inside a hole of another component.
// Foreground is 8-connected and background 4-connected. Contours keep only
// the points where the chain changes direction and are listed the way
// OpenCV's findContours lists them: the component whose top-left pixel comes
// last in raster order is first.
func FindExternalContours(m *Mask) []Contour {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		return nil
	}

	outside := m.outsideBackground()
	visited := make([]bool, w*h)
	queue := make([]int, 0, 256)
	var contours []Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !m.Bits[i] || visited[i] {
				continue
			}

			external := false
			visited[i] = true
			queue = append(queue[:0], i)
			for len(queue) > 0 {
				j := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				px, py := j%w, j/w
				if !external && touchesOutside(px, py, w, h, outside) {
					external = true
				}
				for _, d := range neighbours {
					nx, ny := px+d.X, py+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					k := ny*w + nx
					if m.Bits[k] && !visited[k] {
						visited[k] = true
						queue = append(queue, k)
					}
				}
			}

			if external {
				contours = append(contours, compressChain(traceBorder(m, image.Pt(x, y))))
			}
		}
	}
	slices.Reverse(contours)
	return contours
}

// outsideBackground flags background pixels 4-connected to the image frame.
func (m *Mask) outsideBackground() []bool {
	w, h := m.Width, m.Height
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	seed := func(x, y int) {
		i := y*w + x
		if !m.Bits[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}
	return outside
}

func touchesOutside(x, y, w, h int, outside []bool) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}
	i := y*w + x
	return outside[i-1] || outside[i+1] || outside[i-w] || outside[i+w]
}

// traceBorder follows the outer border clockwise with Moore-neighbour
// tracing, stopping when the first move repeats (Jacob's criterion). start
// must be the top-left pixel of its component so its west side is background.
func traceBorder(m *Mask, start image.Point) Contour {
	contour := Contour{start}
	cur, back := start, dirWest
	var second image.Point
	moved := false

	limit := 4*m.Width*m.Height + 8
	for steps := 0; steps < limit; steps++ {
		next, nextBack, ok := mooreStep(m, cur, back)
		if !ok {
			// isolated pixel
			break
		}
		if moved && cur == start && next == second {
			break
		}
		if !moved {
			second = next
			moved = true
		}
		contour = append(contour, next)
		cur, back = next, nextBack
	}

	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

// mooreStep scans clockwise around cur starting after the background
// neighbour at index back and returns the first foreground neighbour with
// the background neighbour to resume from.
func mooreStep(m *Mask, cur image.Point, back int) (image.Point, int, bool) {
	for i := 1; i < 8; i++ {
		d := (back + i) % 8
		p := cur.Add(neighbours[d])
		if !m.At(p.X, p.Y) {
			continue
		}
		q := cur.Add(neighbours[(d+7)%8])
		return p, directionOf(q.Sub(p)), true
	}
	return cur, back, false
}

func directionOf(delta image.Point) int {
	for i, d := range neighbours {
		if d == delta {
			return i
		}
	}
	return dirWest
}

// compressChain drops points that continue the previous step's direction.
func compressChain(c Contour) Contour {
	n := len(c)
	if n < 3 {
		return c
	}
	out := make(Contour, 0, n/4+4)
	for i := 0; i < n; i++ {
		prev := c[(i-1+n)%n]
		cur := c[i]
		next := c[(i+1)%n]
		if cur.Sub(prev) != next.Sub(cur) {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		return c
	}
	return out
}
