package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

func TestArtifactName(t *testing.T) {
	tests := map[string]string{
		"strip.png":             "output_strip.jpg",
		"photos/test.strip.JPG": "output_test.strip.jpg",
		`C:\uploads\scan.jpeg`:  "output_scan.jpg",
		"":                      "output_image.jpg",
		"stdin":                 "output_stdin.jpg",
	}
	for in, want := range tests {
		if got := ArtifactName(in); got != want {
			t.Errorf("ArtifactName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSourceBase(t *testing.T) {
	tests := map[string]string{
		"strip.png":            "strip",
		`x\0190aaaa_photo.png`: "0190aaaa_photo",
		"../../etc/passwd":     "passwd",
		`..\..\uploads\`:       "uploads",
		`..\`:                  "image",
		"":                     "image",
	}
	for in, want := range tests {
		if got := SourceBase(in); got != want {
			t.Errorf("SourceBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocalArtifactStore_SaveOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalArtifactStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if store.Kind() != "local" {
		t.Errorf("Kind() = %q", store.Kind())
	}

	ctx := context.Background()
	ref, err := store.Save(ctx, "incoming/strip.png", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(ref) != "output_strip.jpg" || filepath.Dir(ref) != dir {
		t.Errorf("ref = %q", ref)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "jpeg-bytes" {
		t.Errorf("read back %q", data)
	}
}

func TestLocalArtifactStore_OpenOutsideDir(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalArtifactStore(filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{secret, filepath.Join(root, "uploads", "..", "secret.txt"), filepath.Join(root, "uploads", "missing.jpg")} {
		if _, err := store.Open(context.Background(), ref); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			t.Errorf("Open(%q) = %v, want not found", ref, err)
		}
	}
}

func TestNopArtifactStore(t *testing.T) {
	store := NewNopArtifactStore()
	ref, err := store.Save(context.Background(), "x.png", []byte("data"))
	if err != nil || ref != "" {
		t.Errorf("Save() = %q, %v", ref, err)
	}
	if _, err := store.Open(context.Background(), "anything"); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Open() = %v", err)
	}
}

func TestNewAzureArtifactStore_Validation(t *testing.T) {
	if _, err := NewAzureArtifactStore("", "key", "c"); err == nil {
		t.Error("expected error for missing account")
	}
	if _, err := NewAzureArtifactStore("account", "not base64!", "c"); err == nil {
		t.Error("expected error for a malformed key")
	}
	store, err := NewAzureArtifactStore("account", "a2V5", "strips")
	if err != nil {
		t.Fatalf("NewAzureArtifactStore: %v", err)
	}
	if store.Kind() != "azure" {
		t.Errorf("Kind() = %q", store.Kind())
	}
}

func TestParseBlobRef(t *testing.T) {
	container, blob, err := parseBlobRef("https://acct.blob.core.windows.net/strips/0190/output_a.jpg")
	if err != nil || container != "strips" || blob != "0190/output_a.jpg" {
		t.Errorf("parseBlobRef = %q, %q, %v", container, blob, err)
	}

	for _, bad := range []string{"", "/local/path.jpg", "https://acct.blob.core.windows.net/strips", "://bad"} {
		if _, _, err := parseBlobRef(bad); err == nil {
			t.Errorf("parseBlobRef(%q) should fail", bad)
		}
	}
}
