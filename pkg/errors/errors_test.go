package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeSessionNotFound, http.StatusNotFound},
		{CodeProviderNotConfigured, http.StatusNotFound},
		{CodeSessionTerminal, http.StatusConflict},
		{CodeSessionNotCompleted, http.StatusConflict},
		{CodeProviderRateLimited, http.StatusTooManyRequests},
		{CodeAllProvidersExhausted, http.StatusServiceUnavailable},
		{CodeProviderUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.code, "msg").HTTPStatus, "code %s", tt.code)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	appErr := Wrap(cause, CodeCacheError, "redis unavailable")

	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "redis unavailable")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestWithDetail(t *testing.T) {
	appErr := New(CodeSessionNotFound, "workflow session not found").WithDetail("sess-42")
	assert.Equal(t, "sess-42", appErr.Detail)
}

func TestAsAppError(t *testing.T) {
	appErr := New(CodeConflict, "conflict")
	assert.Same(t, appErr, AsAppError(appErr))

	plain := errors.New("boom")
	converted := AsAppError(plain)
	require.NotNil(t, converted)
	assert.Equal(t, CodeUnknown, converted.Code)
	assert.ErrorIs(t, converted, plain)
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(New(CodeNotFound, "x")))
	assert.False(t, IsAppError(errors.New("plain")))
}
