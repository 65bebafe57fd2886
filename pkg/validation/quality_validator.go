package validation

import (
	"fmt"
	"strings"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

// QualityThresholds configures the checks run before strip detection.
// Each check only runs when its flag is set.
type QualityThresholds struct {
	// Sharpness
	BlurCheck            bool    `yaml:"blur_check" json:"blur_check"`
	MinLaplacianVariance float64 `yaml:"min_laplacian_variance" json:"min_laplacian_variance"`

	// Lighting, on the 0-255 HSV value scale
	BrightnessCheck bool    `yaml:"brightness_check" json:"brightness_check"`
	MinBrightness   float64 `yaml:"min_brightness" json:"min_brightness"`
	MaxBrightness   float64 `yaml:"max_brightness" json:"max_brightness"`
}

// DefaultQualityThresholds returns the default quality thresholds with every
// check disabled
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 100.0,
		MinBrightness:        50.0,
		MaxBrightness:        200.0,
	}
}

// Enabled reports whether any check would run
func (t QualityThresholds) Enabled() bool {
	return t.BlurCheck || t.BrightnessCheck
}

// QualityValidator applies a profile's quality thresholds to measured metrics
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a quality validator for thresholds
func NewQualityValidator(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageQualityMetrics represents the metrics needed for quality validation
type ImageQualityMetrics struct {
	Width        int
	Height       int
	LaplacianVar float64
	Brightness   float64
}

// Validate runs the enabled checks in order: sharpness, then lighting
func (qv *QualityValidator) Validate(metrics ImageQualityMetrics) []QualityIssue {
	var issues []QualityIssue

	if qv.thresholds.BlurCheck && metrics.LaplacianVar < qv.thresholds.MinLaplacianVariance {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     apperrors.MsgImageTooBlurry,
			Severity:    "error",
			ActualValue: metrics.LaplacianVar,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	}

	if qv.thresholds.BrightnessCheck {
		switch {
		case metrics.Brightness < qv.thresholds.MinBrightness:
			issues = append(issues, QualityIssue{
				Type:        "too_dark",
				Message:     apperrors.MsgImproperLighting,
				Severity:    "error",
				ActualValue: metrics.Brightness,
				Threshold:   qv.thresholds.MinBrightness,
			})
		case metrics.Brightness > qv.thresholds.MaxBrightness:
			issues = append(issues, QualityIssue{
				Type:        "too_bright",
				Message:     apperrors.MsgImproperLighting,
				Severity:    "error",
				ActualValue: metrics.Brightness,
				Threshold:   qv.thresholds.MaxBrightness,
			})
		}
	}

	return issues
}

// DescribeIssues renders every issue with its measurement, for error details:
// "blurriness: 12.30 (threshold 100.00); too_dark: 20.00 (threshold 50.00)"
func DescribeIssues(issues []QualityIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, fmt.Sprintf("%s: %.2f (threshold %.2f)", issue.Type, issue.ActualValue, issue.Threshold))
	}
	return strings.Join(parts, "; ")
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
