package strategy

import (
	"fmt"
	"image"

	"github.com/anime-shed/stripreader/internal/vision"
)

// Mode selects how the locator binarises the working image
type Mode string

const (
	// ModeEdges uses a fixed dual-threshold edge detector
	ModeEdges Mode = "edges"
	// ModeAdaptive uses inverted adaptive thresholding against the local mean
	ModeAdaptive Mode = "adaptive"
)

// Params carries the numeric settings of both modes
type Params struct {
	CannyLow  float64
	CannyHigh float64
	BlockSize int
	Offset    float64
}

// MaskStrategy turns a grayscale working image into the foreground mask that
// is searched for strip contours
type MaskStrategy interface {
	Mask(gray *image.Gray) *vision.Mask
	GetStrategyName() string
}

// EdgeMaskStrategy marks Canny edges
type EdgeMaskStrategy struct {
	low, high float64
}

// NewEdgeMaskStrategy creates an edge mask strategy
func NewEdgeMaskStrategy(low, high float64) MaskStrategy {
	return &EdgeMaskStrategy{low: low, high: high}
}

// Mask runs the edge detector over gray
func (s *EdgeMaskStrategy) Mask(gray *image.Gray) *vision.Mask {
	return vision.Canny(gray, s.low, s.high)
}

// GetStrategyName returns the strategy name
func (s *EdgeMaskStrategy) GetStrategyName() string {
	return string(ModeEdges)
}

// AdaptiveMaskStrategy marks pixels darker than their neighbourhood
type AdaptiveMaskStrategy struct {
	blockSize int
	offset    float64
}

// NewAdaptiveMaskStrategy creates an adaptive threshold strategy
func NewAdaptiveMaskStrategy(blockSize int, offset float64) MaskStrategy {
	return &AdaptiveMaskStrategy{blockSize: blockSize, offset: offset}
}

// Mask thresholds gray against its Gaussian local mean
func (s *AdaptiveMaskStrategy) Mask(gray *image.Gray) *vision.Mask {
	return vision.AdaptiveThreshold(gray, s.blockSize, s.offset)
}

// GetStrategyName returns the strategy name
func (s *AdaptiveMaskStrategy) GetStrategyName() string {
	return string(ModeAdaptive)
}

// ForMode builds the strategy for mode
func ForMode(mode Mode, p Params) (MaskStrategy, error) {
	switch mode {
	case ModeEdges:
		return NewEdgeMaskStrategy(p.CannyLow, p.CannyHigh), nil
	case ModeAdaptive:
		if p.BlockSize < 3 || p.BlockSize%2 == 0 {
			return nil, fmt.Errorf("adaptive block size must be odd and >= 3 (got %d)", p.BlockSize)
		}
		return NewAdaptiveMaskStrategy(p.BlockSize, p.Offset), nil
	default:
		return nil, fmt.Errorf("unsupported detection mode: %q", mode)
	}
}
