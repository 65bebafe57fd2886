//go:build gocv

package analyzer

import (
	"image"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/strategy"
	"github.com/anime-shed/stripreader/internal/vision"
	"gocv.io/x/gocv"
)

// LocatorOpenCV runs mask, contour and polygon steps through OpenCV
const LocatorOpenCV = "opencv"

func init() {
	RegisterLocatorBackend(LocatorOpenCV, NewOpenCVLocator)
}

type opencvLocator struct{}

// NewOpenCVLocator creates the OpenCV-backed locator
func NewOpenCVLocator() Locator {
	return &opencvLocator{}
}

func (l *opencvLocator) Name() string {
	return LocatorOpenCV
}

func (l *opencvLocator) Locate(img image.Image, params DetectionParams) (image.Rectangle, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return image.Rectangle{}, apperrors.NewDetectionError(apperrors.MsgStripNotDetected, nil)
	}

	work, scale := toWorkingWidth(img, params.WorkingWidth)
	gray, err := gocv.ImageGrayToMatGray(vision.ToGray(work))
	if err != nil {
		return image.Rectangle{}, apperrors.NewInternalError("failed to convert image", err)
	}
	defer gray.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	switch params.Mode {
	case strategy.ModeEdges:
		gocv.Canny(gray, &mask, float32(params.CannyLow), float32(params.CannyHigh))
	case strategy.ModeAdaptive:
		gocv.AdaptiveThreshold(gray, &mask, 255, gocv.AdaptiveThresholdGaussian,
			gocv.ThresholdBinaryInv, params.BlockSize, float32(params.Offset))
	default:
		_, err := strategy.ForMode(params.Mode, params.StrategyParams())
		return image.Rectangle{}, apperrors.NewInternalError("invalid detection settings", err)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		approx := gocv.ApproxPolyDP(contour, params.ApproxEpsilon*gocv.ArcLength(contour, true), true)
		if approx.Size() != 4 {
			approx.Close()
			continue
		}
		box := gocv.BoundingRect(approx)
		approx.Close()
		if acceptStrip(box.Dx(), box.Dy(), params) {
			return mapToSource(box, scale, bounds), nil
		}
	}

	return image.Rectangle{}, apperrors.NewDetectionError(apperrors.MsgStripNotDetected, nil)
}
