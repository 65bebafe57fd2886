package repository

import (
	"context"
	"image"
	"io"

	"github.com/anime-shed/stripreader/pkg/models"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves an image from a URL
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error

	// LoadFile decodes an image from the local filesystem
	LoadFile(path string) (image.Image, error)

	// LoadStream decodes an image from a byte stream
	LoadStream(r io.Reader) (image.Image, error)

	// LoadBytes decodes an image already held in memory
	LoadBytes(data []byte) (image.Image, error)
}

// TestResultRepository stores submitted test results
type TestResultRepository interface {
	// Save assigns an ID when the record has none and persists it
	Save(ctx context.Context, rec *models.TestRecord) error

	// GetByID retrieves one record or ErrTestResultNotFound
	GetByID(ctx context.Context, id string) (*models.TestRecord, error)

	// ListByUser returns the user's history, newest test date first
	ListByUser(ctx context.Context, userID string) ([]*models.TestRecord, error)

	Close() error
}
