// Package apperr 业务错误分类（validation / not_found / conflict / persistence）
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 错误类别
type ErrorType string

const (
	// TypeValidation 必填字段缺失或语义无效（HTTP 400）
	TypeValidation ErrorType = "validation"
	// TypeNotFound 引用的 id 不存在（HTTP 404）
	TypeNotFound ErrorType = "not_found"
	// TypeConflict 被依赖记录阻止，或会破坏不变量（HTTP 409）
	TypeConflict ErrorType = "conflict"
	// TypePersistence 存储层/传输失败（HTTP 500）
	TypePersistence ErrorType = "persistence"
)

// Sentinels for errors.Is: any *Error of the same type matches.
var (
	ErrValidation  = &Error{Type: TypeValidation}
	ErrNotFound    = &Error{Type: TypeNotFound}
	ErrConflict    = &Error{Type: TypeConflict}
	ErrPersistence = &Error{Type: TypePersistence}
)

// Error 带类别、消息、原因与上下文的错误
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 同类别即匹配（用于 errors.Is(err, apperr.ErrNotFound)）
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext 追加上下文字段（可链式调用）
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus 对应的 HTTP 状态码
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...any) *Error {
	return &Error{Type: TypeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Type: TypeConflict, Message: fmt.Sprintf(format, args...)}
}

// Persistence 包装存储层错误（cause 原样保留，不做重试）
func Persistence(message string, cause error) *Error {
	return &Error{Type: TypePersistence, Message: message, Cause: cause}
}

// TypeOf 取错误链中第一个 *Error 的类别；非业务错误视为 persistence
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypePersistence
}

// HTTPStatus 取错误链对应的 HTTP 状态码
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
