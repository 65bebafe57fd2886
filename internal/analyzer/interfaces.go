package analyzer

import "image"

// StripAnalyzer runs the full pipeline on one decoded image
type StripAnalyzer interface {
	Analyze(img image.Image, profile Profile) (*Outcome, error)
	Close() error
}

// Locator finds the strip rectangle in source-image coordinates
type Locator interface {
	Locate(img image.Image, params DetectionParams) (image.Rectangle, error)
	Name() string
}

// MetricsCalculator handles the image measurements used by the quality gate
type MetricsCalculator interface {
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateBrightness(img image.Image) float64
}

// QualityGate rejects images that cannot be read reliably
type QualityGate interface {
	Check(img image.Image, profile Profile) error
}
