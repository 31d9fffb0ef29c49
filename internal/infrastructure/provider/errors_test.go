package provider

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-article-api/internal/application/orchestrator"
	apperrors "seo-article-api/pkg/errors"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestCodeForStatus(t *testing.T) {
	upstream := errors.New("upstream error")

	tests := []struct {
		name   string
		status int
		err    error
		want   apperrors.ErrorCode
	}{
		{"rate limited", 429, upstream, apperrors.CodeProviderRateLimited},
		{"unauthorized", 401, upstream, apperrors.CodeProviderAuthFailed},
		{"forbidden", 403, upstream, apperrors.CodeProviderAuthFailed},
		{"server error", 500, upstream, apperrors.CodeProviderTransient},
		{"bad gateway", 502, upstream, apperrors.CodeProviderTransient},
		{"service unavailable", 503, upstream, apperrors.CodeProviderTransient},
		{"bad request", 400, upstream, apperrors.CodeProviderUnknown},
		{"not found", 404, upstream, apperrors.CodeProviderUnknown},
		{"deadline exceeded", 0, context.DeadlineExceeded, apperrors.CodeProviderTransient},
		{"canceled", 0, context.Canceled, apperrors.CodeProviderTransient},
		{"net timeout", 0, timeoutError{}, apperrors.CodeProviderTransient},
		{"wrapped net timeout", 0, &net.OpError{Op: "dial", Err: timeoutError{}}, apperrors.CodeProviderTransient},
		{"plain error no status", 0, upstream, apperrors.CodeProviderUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codeForStatus(tt.status, tt.err))
		})
	}
}

func TestClassifyWrapsOriginalError(t *testing.T) {
	cause := errors.New("quota exceeded")
	appErr := classify("gemini", 429, cause)

	assert.Equal(t, apperrors.CodeProviderRateLimited, appErr.Code)
	assert.Contains(t, appErr.Message, "gemini")
	assert.ErrorIs(t, appErr, cause)
}

func TestMockGenerate(t *testing.T) {
	mock := NewMock("mock", "")
	assert.Equal(t, "mock", mock.Name())
	assert.Equal(t, "mock-v1", mock.Model())

	out, err := mock.Generate(context.Background(), "write a haiku about spring", orchestrator.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "write a haiku about spring")
	assert.Positive(t, out.TokensUsed)
}

func TestMockGenerateCancelledContext(t *testing.T) {
	mock := NewMock("mock", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Generate(ctx, "anything", orchestrator.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
