package analyzer

import (
	"image"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/vision"
	"github.com/anime-shed/stripreader/pkg/validation"
)

// qualityGate measures only what the profile asks it to check
type qualityGate struct {
	metrics MetricsCalculator
}

// NewQualityGate creates the pre-detection quality check
func NewQualityGate(metrics MetricsCalculator) QualityGate {
	if metrics == nil {
		metrics = NewMetricsCalculator()
	}
	return &qualityGate{metrics: metrics}
}

// Check returns a quality error named after the first failed check. With
// every check disabled it accepts any image.
func (g *qualityGate) Check(img image.Image, profile Profile) error {
	thresholds := profile.Quality
	if !thresholds.Enabled() {
		return nil
	}

	b := img.Bounds()
	m := validation.ImageQualityMetrics{Width: b.Dx(), Height: b.Dy()}
	if thresholds.BlurCheck {
		m.LaplacianVar = g.metrics.CalculateLaplacianVariance(vision.ToGray(img))
	}
	if thresholds.BrightnessCheck {
		m.Brightness = g.metrics.CalculateBrightness(img)
	}

	validator := validation.NewQualityValidator(thresholds)
	issues := validator.Validate(m)
	if !validator.HasCriticalIssues(issues) {
		return nil
	}
	// the first failed check names the error; details list all of them
	return apperrors.NewQualityError(issues[0].Message, nil).
		WithDetails(validation.DescribeIssues(issues))
}
