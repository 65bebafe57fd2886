package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/disintegration/imaging"
)

// DefaultMaxPixels caps decoded images at 40 megapixels
const DefaultMaxPixels = 40_000_000

// Limits bound what the loaders accept. A zero or negative field disables
// its check.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// DefaultLimits accepts up to 32 MiB and DefaultMaxPixels
func DefaultLimits() Limits {
	return Limits{MaxBytes: 32 << 20, MaxPixels: DefaultMaxPixels}
}

// DecodeBytes decodes a JPEG, PNG, GIF, BMP or TIFF image, applying its EXIF
// orientation. Empty or oversized input is rejected before any pixel buffer
// is allocated: the dimensions are read from the header first.
func DecodeBytes(data []byte, limits Limits) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.NewInputError(apperrors.MsgNoImageData, nil)
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, apperrors.NewInputError(fmt.Sprintf("Image exceeds %d bytes", limits.MaxBytes), nil)
	}
	if limits.MaxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, apperrors.NewInputError(apperrors.MsgDecodeFailed, err)
		}
		if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > limits.MaxPixels {
			return nil, apperrors.NewInputError(fmt.Sprintf("Image exceeds %d pixels", limits.MaxPixels), nil).
				WithDetails(fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
		}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.NewInputError(apperrors.MsgDecodeFailed, err)
	}
	return img, nil
}

// ReadAll drains r, refusing streams larger than limit bytes when limit > 0
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return nil, apperrors.NewInputError(apperrors.MsgNoImageData, nil)
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInputError("Failed to read image data", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, apperrors.NewInputError(fmt.Sprintf("Image exceeds %d bytes", limit), nil)
	}
	return data, nil
}

// LoadStream decodes an image read from r, such as stdin or a request body
func LoadStream(r io.Reader, limits Limits) (image.Image, error) {
	data, err := ReadAll(r, limits.MaxBytes)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data, limits)
}

// LoadFile decodes the image stored at path
func LoadFile(path string, limits Limits) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewInputError(fmt.Sprintf("Image file not found: %s", path), err)
		}
		return nil, apperrors.NewInputError(fmt.Sprintf("Failed to read image file: %s", path), err)
	}
	if limits.MaxBytes > 0 && info.Size() > limits.MaxBytes {
		return nil, apperrors.NewInputError(fmt.Sprintf("Image exceeds %d bytes", limits.MaxBytes), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInputError(fmt.Sprintf("Failed to read image file: %s", path), err)
	}
	return DecodeBytes(data, limits)
}
