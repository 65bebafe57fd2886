package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

type localStorage struct {
	dir string
}

// NewLocalArtifactStore stores artifacts as files under dir, creating it
// when missing
func NewLocalArtifactStore(dir string) (ArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &localStorage{dir: abs}, nil
}

func (s *localStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, ArtifactName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Open only serves files inside the store directory
func (s *localStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(ref)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid artifact reference", err)
	}
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, apperrors.NewNotFoundError("artifact not found", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("artifact not found", err)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

func (s *localStorage) Kind() string {
	return "local"
}
