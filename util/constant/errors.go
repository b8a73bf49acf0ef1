package constant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind 错误分类，决定传输层是否重试
type ErrorKind int

const (
	KindOther   ErrorKind = iota // 其他错误，不重试
	KindNetwork                  // 连接失败：DNS、拒绝、重置
	KindTimeout                  // 请求超时
	KindServer                   // 网关 5xx
	KindClient                   // 4xx 或网关业务错误，不重试
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	default:
		return "other"
	}
}

// Retryable 是否属于瞬时错误
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout || k == KindServer
}

// Error 网关调用错误
type Error struct {
	Kind       ErrorKind
	Op         string // 例如 "POST /api/v1/order/create-transaction"
	StatusCode int    // HTTP 状态码，未收到响应时为 0
	Code       int    // 网关返回的 status_code
	Message    string
	Attempts   int
	Err        error // 最后一次失败的底层原因
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " http=%d", e.StatusCode)
	}
	if e.Code > 0 {
		fmt.Fprintf(&b, " code=%d", e.Code)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按分类匹配哨兵错误，带消息的哨兵需要消息也一致
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Retryable 是否可以重试
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

var (
	ErrNetwork = &Error{Kind: KindNetwork}
	ErrTimeout = &Error{Kind: KindTimeout}
	ErrServer  = &Error{Kind: KindServer}
	ErrClient  = &Error{Kind: KindClient}

	ErrOrderNotExists    = &Error{Kind: KindClient, Message: "订单不存在"}
	ErrSignatureMismatch = &Error{Kind: KindClient, Message: "签名校验失败"}
	ErrEmptyResponseData = &Error{Kind: KindClient, Message: "响应缺少 data 字段"}
)

// NewClientError 网关业务错误
func NewClientError(op string, code int, message string) *Error {
	return &Error{Kind: KindClient, Op: op, Code: code, Message: message, Attempts: 1}
}

// KindOf 获取错误分类，非本包错误返回 KindOther
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
