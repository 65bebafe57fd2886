package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/google/uuid"
)

type azureStorage struct {
	client    *azblob.Client
	container string
}

// NewAzureArtifactStore stores artifacts as block blobs in container
func NewAzureArtifactStore(accountName, accountKey, container string) (ArtifactStore, error) {
	if accountName == "" || accountKey == "" || container == "" {
		return nil, fmt.Errorf("azure account, key and container are required")
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, container: container}, nil
}

// Save uploads data and returns the blob URL. Blob names carry a random
// prefix so uploads with the same source name do not overwrite each other.
func (s *azureStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	blobName := uuid.NewString() + "/" + ArtifactName(name)
	_, err := s.client.UploadBuffer(ctx, s.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("image/jpeg")},
	})
	if err != nil {
		return "", apperrors.NewNetworkError("upload failed", err)
	}
	return strings.TrimSuffix(s.client.URL(), "/") + "/" + s.container + "/" + blobName, nil
}

func (s *azureStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	containerName, blobName, err := parseBlobRef(ref)
	if err != nil {
		return nil, err
	}
	if containerName != s.container {
		return nil, apperrors.NewNotFoundError("artifact not found", nil)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("download failed", err)
	}
	return downloadResponse.Body, nil
}

func (s *azureStorage) Kind() string {
	return "azure"
}

// parseBlobRef splits https://<account>.blob.core.windows.net/<container>/<blob>
func parseBlobRef(ref string) (container, blobName string, err error) {
	parsedURL, err := url.Parse(ref)
	if err != nil || parsedURL.Host == "" {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}
	container, blobName, ok := strings.Cut(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if !ok || container == "" || blobName == "" {
		return "", "", apperrors.NewValidationError("invalid blob URL", nil)
	}
	return container, blobName, nil
}
