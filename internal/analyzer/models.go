package analyzer

import (
	"image"
	"time"
)

// Result is the qualitative reading of a strip
type Result string

const (
	ResultPositive Result = "Positive"
	ResultNegative Result = "Negative"
	ResultUnclear  Result = "Unclear"
	ResultInvalid  Result = "Invalid"
)

// BandKind tags a band with the line it is expected to contain
type BandKind string

const (
	BandControl BandKind = "control"
	BandTest    BandKind = "test"
)

// Band is a horizontal slice of the strip. Pixels shares the source buffer
// and is empty when the slice has no rows.
type Band struct {
	Kind   BandKind
	Bounds image.Rectangle
	Pixels *image.NRGBA
}

// Empty reports whether the band covers no pixels
func (b Band) Empty() bool {
	return b.Pixels == nil || b.Bounds.Empty()
}

// BandSignal holds the two line-presence measurements of a band, both in [0,1]
type BandSignal struct {
	ColorRatio  float64 `json:"colorRatio"`
	EdgeDensity float64 `json:"edgeDensity"`
}

// Decision pairs a result with its confidence
type Decision struct {
	Result     Result  `json:"result"`
	Confidence float64 `json:"confidence"`
}

// Outcome is everything a successful run produced
type Outcome struct {
	Profile       string
	Strip         image.Rectangle
	Scale         float64
	Control       Band
	Test          Band
	ControlSignal BandSignal
	TestSignal    BandSignal
	Decision      Decision
	Timestamp     time.Time
	Elapsed       time.Duration
}
