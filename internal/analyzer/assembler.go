package analyzer

import (
	"math"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/pkg/models"
)

// BuildRecord packages a successful outcome. Intensities are only reported
// for Positive and Negative results.
func BuildRecord(o *Outcome) models.ResultRecord {
	confidence := round4(o.Decision.Confidence)
	record := models.ResultRecord{
		Status:     string(o.Decision.Result),
		Confidence: &confidence,
		Profile:    o.Profile,
	}
	if o.Decision.Result == ResultPositive || o.Decision.Result == ResultNegative {
		control := round4(o.ControlSignal.ColorRatio)
		test := round4(o.TestSignal.ColorRatio)
		record.ControlIntensity = &control
		record.TestIntensity = &test
	}
	return record
}

// ErrorRecord packages a failed run. Errors outside the application
// taxonomy are reported as internal.
func ErrorRecord(err error) models.ResultRecord {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError(err.Error(), err)
	}
	return models.ResultRecord{
		Status: models.StatusError,
		Kind:   string(appErr.Type),
		Error:  appErr.Message,
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
