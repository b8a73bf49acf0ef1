package service

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/assimon/bepusdt/util/http_client"
	"github.com/assimon/bepusdt/util/log"
	"github.com/assimon/bepusdt/util/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config 客户端配置，构造后不可变
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	// RetryMutationsOnTimeout 创建、取消订单超时后是否重试
	// 网关按 order_id 幂等时可以开启
	RetryMutationsOnTimeout bool   `mapstructure:"retry_mutations_on_timeout"`
	Proxy                   string `mapstructure:"proxy"`
}

// DefaultConfig 默认超时 30s，重试 3 次，间隔 1s 起指数退避
func DefaultConfig(baseURL, token string) Config {
	policy := http_client.DefaultRetryPolicy()
	return Config{
		BaseURL:                 baseURL,
		Token:                   token,
		Timeout:                 http_client.DefaultTimeout,
		MaxRetries:              policy.MaxRetries,
		BaseDelay:               policy.BaseDelay,
		RetryMutationsOnTimeout: true,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "api 地址格式错误")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("api 地址必须是 http(s) 绝对地址: %q", c.BaseURL)
	}
	if c.Token == "" {
		return errors.New("api token 不能为空")
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout 不能为负数: %s", c.Timeout)
	}
	return errors.WithStack(c.retryPolicy().Validate())
}

func (c Config) retryPolicy() http_client.RetryPolicy {
	delay := c.BaseDelay
	if delay == 0 {
		delay = http_client.DefaultRetryPolicy().BaseDelay
	}
	return http_client.RetryPolicy{MaxRetries: c.MaxRetries, BaseDelay: delay}
}

type clientOptions struct {
	logger       *zap.Logger
	roundTripper http.RoundTripper
	metrics      *metrics.Collector
}

// Option 客户端可选项
type Option func(*clientOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRoundTripper 替换底层 HTTP 传输
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.roundTripper = rt }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *clientOptions) { o.metrics = c }
}

// Client BEpusdt 网关客户端，可并发使用
type Client struct {
	baseURL        string
	token          string
	timeout        time.Duration
	retryMutations bool
	transport      *http_client.Transport
	logger         *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "客户端配置错误")
	}
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNop(o.logger).With(zap.String("component", "bepusdt"))

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = http_client.DefaultTimeout
	}
	transportOpts := []http_client.Option{
		http_client.WithTimeout(timeout),
		http_client.WithRetryPolicy(cfg.retryPolicy()),
		http_client.WithLogger(logger),
		http_client.WithMetrics(o.metrics),
		http_client.WithProxy(cfg.Proxy),
	}
	if o.roundTripper != nil {
		transportOpts = append(transportOpts, http_client.WithRoundTripper(o.roundTripper))
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		token:          cfg.Token,
		timeout:        timeout,
		retryMutations: cfg.RetryMutationsOnTimeout,
		transport:      http_client.NewTransport(transportOpts...),
		logger:         logger,
	}, nil
}

// BaseURL 网关地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout 单次请求超时
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// RetryPolicy 重试策略
func (c *Client) RetryPolicy() http_client.RetryPolicy {
	return c.transport.Policy()
}
