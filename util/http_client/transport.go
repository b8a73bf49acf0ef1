package http_client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/assimon/bepusdt/util/constant"
	"github.com/assimon/bepusdt/util/log"
	"github.com/assimon/bepusdt/util/metrics"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// bodySnippetLimit 错误信息中保留的响应体长度
const bodySnippetLimit = 256

// Request 一次逻辑请求
type Request struct {
	Method string
	URL    string
	Query  map[string]string
	Body   []byte // JSON 请求体
	// Idempotent 为 false 时超时不重试，请求可能已被网关接收
	Idempotent bool
}

// Response 原始响应
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

// Transport 带超时、重试、指数退避的 HTTP 调用
// 构造后不可变，可并发使用
type Transport struct {
	client  *resty.Client
	policy  RetryPolicy
	logger  *zap.Logger
	metrics *metrics.Collector
	sleep   func(ctx context.Context, d time.Duration) error
}

type transportOptions struct {
	timeout      time.Duration
	policy       RetryPolicy
	roundTripper http.RoundTripper
	proxy        string
	userAgent    string
	logger       *zap.Logger
	metrics      *metrics.Collector
}

// Option 传输层配置项
type Option func(*transportOptions)

func WithTimeout(timeout time.Duration) Option {
	return func(o *transportOptions) { o.timeout = timeout }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *transportOptions) { o.policy = policy }
}

// WithRoundTripper 替换底层传输，设置后代理配置不生效
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *transportOptions) { o.roundTripper = rt }
}

func WithProxy(proxy string) Option {
	return func(o *transportOptions) { o.proxy = proxy }
}

func WithUserAgent(ua string) Option {
	return func(o *transportOptions) { o.userAgent = ua }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *transportOptions) { o.logger = logger }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *transportOptions) { o.metrics = c }
}

// NewTransport 创建传输层
func NewTransport(opts ...Option) *Transport {
	o := transportOptions{
		timeout: DefaultTimeout,
		policy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNop(o.logger)

	var client *resty.Client
	if o.roundTripper != nil {
		client = GetHttpClient(o.timeout)
		client.SetTransport(o.roundTripper)
	} else {
		client = GetHttpClient(o.timeout, o.proxy)
	}
	if o.userAgent != "" {
		client.SetHeader("User-Agent", o.userAgent)
	}
	client.SetLogger(logger.Sugar())

	return &Transport{
		client:  client,
		policy:  o.policy,
		logger:  logger,
		metrics: o.metrics,
		sleep:   sleepContext,
	}
}

// Policy 当前重试策略
func (t *Transport) Policy() RetryPolicy {
	return t.policy
}

// Execute 执行请求，瞬时错误按策略重试，最终返回成功响应或分类错误
func (t *Transport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	op := req.Method + " " + stripQuery(req.URL)
	start := time.Now()
	defer func() { t.metrics.ObserveDuration(req.Method, time.Since(start)) }()

	attempts := t.policy.Attempts()
	var last *constant.Error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := t.do(ctx, req)
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode()
		}
		t.metrics.ObserveAttempt(req.Method, statusCode)

		if err == nil && resp.IsSuccess() {
			if attempt > 0 {
				t.logger.Info("请求重试后成功",
					zap.String("op", op),
					zap.Int("attempts", attempt+1),
				)
			}
			return &Response{StatusCode: statusCode, Body: resp.Body(), Attempts: attempt + 1}, nil
		}

		last = classify(op, resp, err)
		last.Attempts = attempt + 1

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, t.fail(req, contextError(op, ctxErr, last))
		}
		if !t.shouldRetry(req, last.Kind) || attempt == attempts-1 {
			return nil, t.fail(req, last)
		}

		delay := t.policy.Backoff(attempt)
		t.logger.Warn("请求失败，准备重试",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.String("kind", last.Kind.String()),
			zap.Int("status_code", last.StatusCode),
			zap.Duration("backoff", delay),
			zap.Error(last.Err),
		)
		t.metrics.ObserveRetry(req.Method, last.Kind.String())

		if err := t.sleep(ctx, delay); err != nil {
			return nil, t.fail(req, contextError(op, err, last))
		}
	}
	return nil, t.fail(req, last)
}

func (t *Transport) do(ctx context.Context, req *Request) (*resty.Response, error) {
	r := t.client.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}
	return r.Execute(req.Method, req.URL)
}

func (t *Transport) shouldRetry(req *Request, kind constant.ErrorKind) bool {
	if !kind.Retryable() {
		return false
	}
	if kind == constant.KindTimeout && !req.Idempotent {
		return false
	}
	return true
}

func (t *Transport) fail(req *Request, err *constant.Error) error {
	t.metrics.ObserveFailure(req.Method, err.Kind.String())
	t.logger.Error("网关请求失败",
		zap.String("op", err.Op),
		zap.String("kind", err.Kind.String()),
		zap.Int("attempts", err.Attempts),
		zap.Int("status_code", err.StatusCode),
		zap.Error(err),
	)
	return err
}

// classify 对单次请求结果分类
func classify(op string, resp *resty.Response, err error) *constant.Error {
	if err != nil {
		return &constant.Error{Kind: classifyError(err), Op: op, Err: err}
	}
	statusCode := resp.StatusCode()
	body := resp.Body()
	switch {
	case statusCode >= http.StatusInternalServerError:
		return &constant.Error{Kind: constant.KindServer, Op: op, StatusCode: statusCode, Message: snippet(body)}
	case statusCode >= http.StatusBadRequest:
		code, message := gatewayMessage(body)
		return &constant.Error{Kind: constant.KindClient, Op: op, StatusCode: statusCode, Code: code, Message: message}
	default:
		return &constant.Error{Kind: constant.KindOther, Op: op, StatusCode: statusCode, Message: snippet(body)}
	}
}

func classifyError(err error) constant.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return constant.KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return constant.KindOther
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return constant.KindTimeout
	}
	return constant.KindNetwork
}

// contextError 调用方取消或截止时间到达，停止重试
func contextError(op string, ctxErr error, last *constant.Error) *constant.Error {
	kind := constant.KindOther
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		kind = constant.KindTimeout
	}
	e := &constant.Error{Kind: kind, Op: op, Err: ctxErr}
	if last != nil {
		e.StatusCode = last.StatusCode
		e.Attempts = last.Attempts
		if last.Err != nil {
			e.Message = last.Err.Error()
		} else {
			e.Message = last.Message
		}
	}
	return e
}

// gatewayMessage 从 4xx 响应体中提取网关信封的 status_code 与 message
func gatewayMessage(body []byte) (int, string) {
	var envelope struct {
		StatusCode int    `json:"status_code"`
		Message    string `json:"message"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.StatusCode, envelope.Message
	}
	return 0, snippet(body)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodySnippetLimit {
		return s[:bodySnippetLimit] + "..."
	}
	return s
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
