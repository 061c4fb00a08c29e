package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/kasuganosora/sheetmerge/pkg/journal"
	"github.com/kasuganosora/sheetmerge/pkg/merge"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// Error 错误类型（带堆栈）
type Error struct {
	Code    ErrorCode
	Message string
	Stack   []string // 调用堆栈
	Cause   error    // 原始错误
}

// ErrorCode 错误码
type ErrorCode string

const (
	ErrCodeReadFailed     ErrorCode = "READ_FAILED"
	ErrCodeWriteFailed    ErrorCode = "WRITE_FAILED"
	ErrCodeColumnNotFound ErrorCode = "COLUMN_NOT_FOUND"
	ErrCodeSchema         ErrorCode = "SCHEMA"
	ErrCodeInvalidConfig  ErrorCode = "INVALID_CONFIG"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeCanceled       ErrorCode = "CANCELED"
	ErrCodeInternal       ErrorCode = "INTERNAL"
)

// Error 接口实现
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace 返回调用堆栈
func (e *Error) StackTrace() []string {
	return e.Stack
}

// NewError 创建错误
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   cause,
	}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是我们的错误类型，保留原有堆栈
	if apiErr, ok := err.(*Error); ok {
		return &Error{
			Code:    code,
			Message: message,
			Stack:   apiErr.Stack,
			Cause:   apiErr,
		}
	}

	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   err,
	}
}

// captureStackTrace 捕获调用堆栈
func captureStackTrace() []string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc) // 跳过前3层

	if n == 0 {
		return []string{}
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !more {
			break
		}

		// 格式化堆栈信息
		fn := frame.Function
		file := frame.File
		line := frame.Line

		// 简化文件路径
		if idx := strings.LastIndex(file, "/"); idx != -1 {
			file = file[idx+1:]
		}

		// 提取函数名（去掉包路径）
		if idx := strings.LastIndex(fn, "/"); idx != -1 {
			fn = fn[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("  at %s (%s:%d)", fn, file, line))
	}

	return stack
}

// IsErrorCode 检查错误码（沿错误链查找）
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code && err != nil
}

// GetErrorCode 获取错误码
func GetErrorCode(err error) ErrorCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// GetErrorMessage 获取错误消息
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// ClassifyError 把合并和读写过程中的错误转换为带错误码的 Error
// 已经是 Error 的原样返回
func ClassifyError(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		keyErr     *merge.KeyColumnMissing
		schemaErr  *merge.SchemaError
		configErr  *merge.ConfigError
		readErr    *domain.ErrReadFailed
		writeErr   *domain.ErrWriteFailed
		colErr     *domain.ErrColumnNotFound
		invalidErr *domain.ErrInvalidConfig
		readOnly   *domain.ErrReadOnly
	)

	code := ErrCodeInternal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeCanceled
	case errors.As(err, &keyErr), errors.As(err, &colErr):
		code = ErrCodeColumnNotFound
	case errors.As(err, &schemaErr):
		code = ErrCodeSchema
	case errors.As(err, &configErr), errors.As(err, &invalidErr):
		code = ErrCodeInvalidConfig
	case errors.As(err, &writeErr), errors.As(err, &readOnly):
		code = ErrCodeWriteFailed
	case errors.As(err, &readErr):
		code = ErrCodeReadFailed
	case errors.Is(err, journal.ErrRunNotFound):
		code = ErrCodeNotFound
	}
	return WrapError(err, code, message)
}
