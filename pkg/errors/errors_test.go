package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{403, ErrorTypeHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatus(tt.code, "https://example.com/a.png")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.code, err.Code)
			assert.Contains(t, err.Error(), "https://example.com/a.png")
		})
	}
}

func TestTypeOfWrapped(t *testing.T) {
	base := New(ErrorTypeCORS, "missing Access-Control-Allow-Origin")
	wrapped := fmt.Errorf("fetch failed: %w", base)

	assert.Equal(t, ErrorTypeCORS, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeCORS))
	assert.False(t, Is(nil, ErrorTypeCORS))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrorTypeNetwork, cause, "")

	assert.Equal(t, "connection refused", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.False(t, IsRetryable(ErrorTypeCORS))
	assert.False(t, IsRetryable(ErrorTypeNotFound))

	assert.True(t, IsRetryableStatusCode(502))
	assert.True(t, IsRetryableStatusCode(0))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
