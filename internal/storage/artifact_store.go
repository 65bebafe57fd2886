package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

// ArtifactStore persists annotated images and serves them back by reference
type ArtifactStore interface {
	// Save stores data under a name derived from name and returns a
	// reference that Open accepts
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Kind() string
}

// SourceBase strips directories, in either slash style, and the extension
// from a source name: `C:\scans\strip.png` becomes "strip"
func SourceBase(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base
}

// ArtifactName maps a source name to the stored artifact name:
// "photos/strip.png" becomes "output_strip.jpg"
func ArtifactName(name string) string {
	return "output_" + SourceBase(name) + ".jpg"
}

type nopArtifactStore struct{}

// NewNopArtifactStore returns a store that keeps nothing
func NewNopArtifactStore() ArtifactStore {
	return nopArtifactStore{}
}

func (nopArtifactStore) Save(context.Context, string, []byte) (string, error) {
	return "", nil
}

func (nopArtifactStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, apperrors.NewNotFoundError("artifact storage is disabled", nil)
}

func (nopArtifactStore) Kind() string {
	return "none"
}
