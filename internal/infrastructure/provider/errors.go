// Package provider 实现各 LLM 提供商的适配器
package provider

import (
	"context"
	"errors"
	"net"
	"net/http"

	apperrors "seo-article-api/pkg/errors"
)

// classify 将供应商 SDK 错误映射为统一的提供商错误
func classify(provider string, statusCode int, err error) *apperrors.AppError {
	return apperrors.Wrap(err, codeForStatus(statusCode, err), provider+" call failed")
}

// codeForStatus 按 HTTP 状态码归类错误
// 超时与网络层错误视为瞬时错误
func codeForStatus(status int, err error) apperrors.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.CodeProviderTransient
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.CodeProviderRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.CodeProviderAuthFailed
	case status >= http.StatusInternalServerError:
		return apperrors.CodeProviderTransient
	case status > 0:
		return apperrors.CodeProviderUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.CodeProviderTransient
	}
	return apperrors.CodeProviderUnknown
}
