package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 标识错误的类别，调用方据此决定如何向用户呈现。
type Kind string

const (
	KindQuotaDenied       Kind = "quota_denied"       // 当日配额已用完
	KindQuotaUnavailable  Kind = "quota_unavailable"  // 配额存储不可用
	KindUpstream          Kind = "upstream_error"     // 生成模型调用失败
	KindEmbedding         Kind = "embedding_error"    // 向量模型调用失败
	KindDimensionMismatch Kind = "dimension_mismatch" // 向量维度不符或分量非有限值
	KindUserNotFound      Kind = "user_not_found"     // 用户不存在
	KindInvalidArgument   Kind = "invalid_argument"   // 请求参数非法
	KindStore             Kind = "store_error"        // 其他存储错误
)

// Error 是核心流程中所有错误的统一载体。
type Error struct {
	Kind Kind   // 错误类别
	Op   string // 出错的操作，例如 "quota.TryConsume"
	Err  error  // 底层错误，可为 nil
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按类别匹配，使 errors.Is(err, errs.ErrQuotaDenied) 对任意包装层级都成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// 各类别的哨兵错误，仅用于 errors.Is 比较。
var (
	ErrQuotaDenied       = &Error{Kind: KindQuotaDenied}
	ErrQuotaUnavailable  = &Error{Kind: KindQuotaUnavailable}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrEmbedding         = &Error{Kind: KindEmbedding}
	ErrDimensionMismatch = &Error{Kind: KindDimensionMismatch}
	ErrUserNotFound      = &Error{Kind: KindUserNotFound}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrStore             = &Error{Kind: KindStore}
)

// E 构造一个带操作名的错误。
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链上第一个 *Error 的类别；非本包错误视为存储错误。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// HTTPStatus 把错误映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindQuotaDenied:
		return http.StatusTooManyRequests
	case KindUpstream, KindEmbedding:
		return http.StatusBadGateway
	case KindUserNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
