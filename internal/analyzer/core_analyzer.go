package analyzer

import (
	"fmt"
	"image"
	"time"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/disintegration/imaging"
)

// coreAnalyzer implements StripAnalyzer and orchestrates all components
type coreAnalyzer struct {
	locator Locator
	gate    QualityGate
}

// NewStripAnalyzer creates an analyzer; nil components fall back to the
// native locator and the default quality gate
func NewStripAnalyzer(locator Locator, gate QualityGate) StripAnalyzer {
	if locator == nil {
		locator = NewNativeLocator()
	}
	if gate == nil {
		gate = NewQualityGate(nil)
	}
	return &coreAnalyzer{locator: locator, gate: gate}
}

// Analyze runs quality gate, locator, band extraction, band analysis and the
// decision rules on img. The first failing stage ends the run with a typed
// error; img is never modified.
func (ca *coreAnalyzer) Analyze(img image.Image, profile Profile) (outcome *Outcome, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = apperrors.NewInternalError("analysis failed", fmt.Errorf("panic: %v", r))
		}
	}()

	if img == nil || img.Bounds().Empty() {
		return nil, apperrors.NewInputError(apperrors.MsgEmptyImage, nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid profile", err)
	}

	src := toNRGBA(img)

	if err := ca.gate.Check(src, profile); err != nil {
		return nil, err
	}

	strip, err := ca.locator.Locate(src, profile.Detection)
	if err != nil {
		return nil, err
	}

	control, test := ExtractBands(src, strip, profile.Layout)
	controlSignal := AnalyzeBand(control, profile.LineColor, profile.BandEdges)
	testSignal := AnalyzeBand(test, profile.LineColor, profile.BandEdges)

	return &Outcome{
		Profile:       profile.Name,
		Strip:         strip,
		Scale:         workingScale(src.Bounds().Dx(), profile.Detection.WorkingWidth),
		Control:       control,
		Test:          test,
		ControlSignal: controlSignal,
		TestSignal:    testSignal,
		Decision:      Decide(controlSignal, testSignal, profile.Thresholds),
		Timestamp:     start,
		Elapsed:       time.Since(start),
	}, nil
}

// Close releases analyzer resources
func (ca *coreAnalyzer) Close() error {
	return nil
}

// toNRGBA returns img as an NRGBA plane anchored at (0,0), copying only when
// the layout differs
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

func workingScale(width, workingWidth int) float64 {
	if workingWidth <= 0 || width == 0 {
		return 1
	}
	return float64(workingWidth) / float64(width)
}
