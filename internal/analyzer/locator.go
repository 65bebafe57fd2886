package analyzer

import (
	"fmt"
	"image"
	"sort"
	"sync"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/strategy"
	"github.com/anime-shed/stripreader/internal/vision"
	"github.com/disintegration/imaging"
)

// LocatorNative is the pure Go locator backend
const LocatorNative = "native"

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() Locator{
		LocatorNative: NewNativeLocator,
	}
)

// RegisterLocatorBackend makes a locator available under name
func RegisterLocatorBackend(name string, ctor func() Locator) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = ctor
}

// NewLocator builds the locator registered under name
func NewLocator(name string) (Locator, error) {
	backendsMu.RLock()
	ctor, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported locator backend: %q (available: %v)", name, LocatorBackends())
	}
	return ctor(), nil
}

// LocatorBackends lists the registered backend names
func LocatorBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nativeLocator searches external contours of a binary mask for the first
// quadrilateral with strip proportions
type nativeLocator struct{}

// NewNativeLocator creates the pure Go locator
func NewNativeLocator() Locator {
	return &nativeLocator{}
}

func (l *nativeLocator) Name() string {
	return LocatorNative
}

// Locate returns the strip rectangle in img coordinates
func (l *nativeLocator) Locate(img image.Image, params DetectionParams) (image.Rectangle, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return image.Rectangle{}, apperrors.NewDetectionError(apperrors.MsgStripNotDetected, nil)
	}

	mask, err := strategy.ForMode(params.Mode, params.StrategyParams())
	if err != nil {
		return image.Rectangle{}, apperrors.NewInternalError("invalid detection settings", err)
	}

	work, scale := toWorkingWidth(img, params.WorkingWidth)
	binary := mask.Mask(vision.ToGray(work))

	for _, contour := range vision.FindExternalContours(binary) {
		approx := vision.ApproxPolyDP(contour, params.ApproxEpsilon*vision.ArcLength(contour, true), true)
		if len(approx) != 4 {
			continue
		}
		box := vision.BoundingRect(approx)
		if !acceptStrip(box.Dx(), box.Dy(), params) {
			continue
		}
		return mapToSource(box, scale, bounds), nil
	}

	return image.Rectangle{}, apperrors.NewDetectionError(apperrors.MsgStripNotDetected, nil)
}

// toWorkingWidth resizes img to width, keeping its aspect ratio. The returned
// scale maps source coordinates to working ones.
func toWorkingWidth(img image.Image, width int) (image.Image, float64) {
	origW := img.Bounds().Dx()
	if width <= 0 || width == origW {
		return img, 1
	}
	return imaging.Resize(img, width, 0, imaging.Linear), float64(width) / float64(origW)
}

// acceptStrip applies the aspect interval and minimum sizes, all strict
func acceptStrip(w, h int, params DetectionParams) bool {
	if h <= 0 {
		return false
	}
	aspect := float64(w) / float64(h)
	return aspect > params.MinAspect && aspect < params.MaxAspect &&
		w > params.MinWidth && h > params.MinHeight
}

// mapToSource converts a working-image box back to source coordinates by
// truncating origin and size separately, then clips it to bounds
func mapToSource(box image.Rectangle, scale float64, bounds image.Rectangle) image.Rectangle {
	x := int(float64(box.Min.X) / scale)
	y := int(float64(box.Min.Y) / scale)
	w := int(float64(box.Dx()) / scale)
	h := int(float64(box.Dy()) / scale)
	r := image.Rect(x, y, x+w, y+h).Add(bounds.Min)
	return r.Intersect(bounds)
}
