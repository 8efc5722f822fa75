package httpapi

import "floor-data/internal/apperr"

// Result 管理端统一响应包
// - code: 2000 = 成功，-1 = 失败
// - type: 'success' | 'error'；失败时可以是 apperr 类别（validation / not_found / conflict / persistence）
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailErr 失败包，type 取错误类别
func FailErr(err error) Result[any] {
	return Result[any]{Code: ResultError, Type: string(apperr.TypeOf(err)), Message: err.Error(), Result: nil}
}
