package analyzer

import (
	"github.com/anime-shed/stripreader/internal/vision"
)

// AnalyzeBand measures how much of the band is line-coloured and how much of
// it sits on a sharp intensity edge. An empty band yields a zero signal.
func AnalyzeBand(band Band, window ColorWindow, edges EdgeThresholds) BandSignal {
	if band.Empty() {
		return BandSignal{}
	}
	px := band.Pixels
	b := px.Bounds()
	total := b.Dx() * b.Dy()

	matched := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := px.Pix[px.PixOffset(b.Min.X, y):px.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			h, s, v := vision.HSV8(row[i], row[i+1], row[i+2])
			if window.Contains(h, s, v) {
				matched++
			}
		}
	}

	edgeCount := vision.Canny(vision.ToGray(px), edges.Low, edges.High).Count()

	return BandSignal{
		ColorRatio:  float64(matched) / float64(total),
		EdgeDensity: float64(edgeCount) / float64(total),
	}
}
