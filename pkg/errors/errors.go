// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 请求错误 (2xxx)
	CodeInvalidRequest ErrorCode = "2001"

	// 会话错误 (3xxx)
	CodeSessionNotFound     ErrorCode = "3001"
	CodeSessionTerminal     ErrorCode = "3002"
	CodeSessionNotCompleted ErrorCode = "3003"

	// 提供商错误 (4xxx)
	CodeProviderRateLimited    ErrorCode = "4001"
	CodeProviderAuthFailed     ErrorCode = "4002"
	CodeProviderTransient      ErrorCode = "4003"
	CodeProviderUnknown        ErrorCode = "4004"
	CodeAllProvidersExhausted  ErrorCode = "4005"
	CodeProviderNotConfigured  ErrorCode = "4006"
	CodeProviderQuotaExhausted ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound, CodeProviderNotConfigured:
		return http.StatusNotFound
	case CodeConflict, CodeSessionTerminal, CodeSessionNotCompleted:
		return http.StatusConflict
	case CodeTooManyRequests, CodeProviderRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeAllProvidersExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrInvalidRequest = New(CodeInvalidRequest, "invalid request")

	ErrSessionNotFound     = New(CodeSessionNotFound, "workflow session not found")
	ErrSessionTerminal     = New(CodeSessionTerminal, "workflow session already terminal")
	ErrSessionNotCompleted = New(CodeSessionNotCompleted, "workflow session not completed")

	ErrAllProvidersExhausted = New(CodeAllProvidersExhausted, "all providers exhausted")
	ErrProviderNotConfigured = New(CodeProviderNotConfigured, "provider not configured")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
