package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"input", NewInputError(MsgNoImageData, nil), ErrorTypeInput, http.StatusBadRequest},
		{"quality", NewQualityError(MsgImageTooBlurry, nil), ErrorTypeQuality, http.StatusUnprocessableEntity},
		{"detection", NewDetectionError(MsgStripNotDetected, nil), ErrorTypeDetection, http.StatusUnprocessableEntity},
		{"internal", NewInternalError("boom", nil), ErrorTypeInternal, http.StatusInternalServerError},
		{"not found", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"timeout", NewTimeoutError("slow", nil), ErrorTypeTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", tt.err.Type, tt.wantType)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := NewInputError(MsgDecodeFailed, io.ErrUnexpectedEOF)
	want := "input: Failed to decode image (caused by: unexpected EOF)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Unwrap() != io.ErrUnexpectedEOF {
		t.Error("Unwrap should return the cause")
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("analyze: %w", NewDetectionError(MsgStripNotDetected, nil))

	if !IsType(wrapped, ErrorTypeDetection) {
		t.Error("expected wrapped detection error to be recognised")
	}
	if IsType(wrapped, ErrorTypeInput) {
		t.Error("detection error must not match input type")
	}
	if GetStatusCode(wrapped) != http.StatusUnprocessableEntity {
		t.Errorf("GetStatusCode = %d", GetStatusCode(wrapped))
	}
	if GetStatusCode(io.EOF) != http.StatusInternalServerError {
		t.Error("plain errors should map to 500")
	}
}

func TestWithDetails(t *testing.T) {
	base := NewQualityError(MsgImproperLighting, nil)
	detailed := base.WithDetails("mean brightness 12.0")
	if base.Details != "" {
		t.Error("WithDetails must not mutate the receiver")
	}
	if detailed.Details != "mean brightness 12.0" || detailed.Message != MsgImproperLighting {
		t.Errorf("unexpected copy: %+v", detailed)
	}
}
