package repository

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/anime-shed/stripreader/internal/storage"
	"github.com/anime-shed/stripreader/pkg/validation"
)

// imageRepository implements ImageRepository on top of the storage loaders
type imageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
	limits    storage.Limits
}

// NewImageRepository creates an image repository. limits apply to local
// files, streams and byte slices; a nil validator admits any http(s) host.
func NewImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator, limits storage.Limits) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator(validation.DefaultURLPolicy())
	}
	return &imageRepository{
		fetcher:   fetcher,
		validator: validator,
		limits:    limits,
	}
}

// FetchImage validates the URL and retrieves the image through the fetcher
func (r *imageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	return r.fetcher.FetchImage(ctx, imageURL)
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *imageRepository) ValidateImageURL(imageURL string) error {
	if imageURL == "" {
		return ErrInvalidImageURL
	}
	if err := r.validator.ValidateImageURL(imageURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImageURL, err)
	}
	return nil
}

func (r *imageRepository) LoadFile(path string) (image.Image, error) {
	return storage.LoadFile(path, r.limits)
}

func (r *imageRepository) LoadStream(rd io.Reader) (image.Image, error) {
	return storage.LoadStream(rd, r.limits)
}

func (r *imageRepository) LoadBytes(data []byte) (image.Image, error) {
	return storage.DecodeBytes(data, r.limits)
}
