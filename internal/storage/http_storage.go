package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	apperrors "github.com/anime-shed/stripreader/internal/errors"
)

// ImageFetcher downloads and decodes remote images
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

const fetchAttempts = 3

// HTTPImageFetcher implements ImageFetcher with retries on transient failures
type HTTPImageFetcher struct {
	client  *http.Client
	backoff time.Duration
	limits  Limits
}

// NewHTTPImageFetcher creates an HTTP image fetcher. timeout bounds each
// attempt; zero means 30 seconds.
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Connection pooling sized for single image downloads
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: time.Second,
		limits:  DefaultLimits(),
	}
}

// WithLimits replaces the size and pixel caps applied to downloads
func (h *HTTPImageFetcher) WithLimits(limits Limits) *HTTPImageFetcher {
	h.limits = limits
	return h
}

// FetchImage downloads imageURL and decodes it. 5xx responses and transport
// errors are retried with a linear backoff; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/gif, */*")
	req.Header.Set("User-Agent", "stripreader/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeoutError("image fetch cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.NewTimeoutError("image fetch cancelled", ctx.Err())
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			data, err := ReadAll(resp.Body, h.limits.MaxBytes)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			return DecodeBytes(data, h.limits)
		}
		resp.Body.Close()

		// 4xx client errors are non-retryable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, apperrors.NewNetworkError(
				fmt.Sprintf("failed to fetch image: client error: status code %d", resp.StatusCode), nil)
		}
		lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	return nil, apperrors.NewNetworkError(
		fmt.Sprintf("failed to fetch image after %d attempts: %v", fetchAttempts, lastErr), lastErr)
}
