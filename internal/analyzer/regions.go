package analyzer

import "image"

// ExtractBands slices the control and test bands out of the strip. Band rows
// are [center-half, center+half) in strip coordinates, clamped to the strip,
// and always span the full strip width. A very short strip gives empty bands.
func ExtractBands(img *image.NRGBA, strip image.Rectangle, layout Layout) (control, test Band) {
	strip = strip.Intersect(img.Bounds())
	return extractBand(img, strip, BandControl, layout.ControlFraction, layout.BandHalfHeightFraction),
		extractBand(img, strip, BandTest, layout.TestFraction, layout.BandHalfHeightFraction)
}

func extractBand(img *image.NRGBA, strip image.Rectangle, kind BandKind, fraction, halfFraction float64) Band {
	h := strip.Dy()
	center := int(float64(h) * fraction)
	half := int(float64(h) * halfFraction)

	top := clampInt(center-half, 0, h)
	bottom := clampInt(center+half, 0, h)

	r := image.Rect(strip.Min.X, strip.Min.Y+top, strip.Max.X, strip.Min.Y+bottom)
	band := Band{Kind: kind, Bounds: r}
	if !r.Empty() {
		band.Pixels = img.SubImage(r).(*image.NRGBA)
	}
	return band
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
