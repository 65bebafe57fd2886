package vision

import (
	"image"
	"math"
)

// ArcLength returns the perimeter of a closed contour or the length of an
// open curve.
func ArcLength(c Contour, closed bool) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < n; i++ {
		total += dist(c[i-1], c[i])
	}
	if closed {
		total += dist(c[n-1], c[0])
	}
	return total
}

// ApproxPolyDP simplifies c with the Douglas-Peucker algorithm so that no
// dropped point lies farther than epsilon from the kept polyline. A closed
// contour is split at two mutually distant points and each half is
// simplified independently.
func ApproxPolyDP(c Contour, epsilon float64, closed bool) Contour {
	n := len(c)
	if n < 3 {
		return append(Contour(nil), c...)
	}
	if !closed {
		return douglasPeucker(c, epsilon)
	}

	a := farthestFrom(c, c[0])
	b := farthestFrom(c, c[a])
	if a == b {
		return Contour{c[a]}
	}

	first := douglasPeucker(ringSlice(c, a, b), epsilon)
	second := douglasPeucker(ringSlice(c, b, a), epsilon)
	out := make(Contour, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

// BoundingRect returns the smallest rectangle covering every point, counting
// each point as one pixel.
func BoundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func douglasPeucker(pts Contour, epsilon float64) Contour {
	if len(pts) < 3 {
		return append(Contour(nil), pts...)
	}
	first, last := pts[0], pts[len(pts)-1]
	idx, dmax := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > dmax {
			idx, dmax = i, d
		}
	}
	if dmax <= epsilon {
		return Contour{first, last}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// ringSlice returns c[from..to] inclusive, wrapping past the end.
func ringSlice(c Contour, from, to int) Contour {
	n := len(c)
	out := make(Contour, 0, (to-from+n)%n+1)
	for i := from; ; i = (i + 1) % n {
		out = append(out, c[i])
		if i == to {
			break
		}
	}
	return out
}

func farthestFrom(c Contour, p image.Point) int {
	best, bestD := 0, -1.0
	for i, q := range c {
		if d := dist(p, q); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// segmentDistance is the distance from p to the line through a and b, or to
// a when the two coincide.
func segmentDistance(p, a, b image.Point) float64 {
	if a == b {
		return dist(p, a)
	}
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	cross := dx*float64(p.Y-a.Y) - dy*float64(p.X-a.X)
	return math.Abs(cross) / math.Hypot(dx, dy)
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
