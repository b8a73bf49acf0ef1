package http_client

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "bepusdt-go"
)

// GetHttpClient 获取请求客户端，内置重试关闭，由 Transport 负责重试
func GetHttpClient(timeout time.Duration, proxys ...string) *resty.Client {
	client := resty.New()
	// 如果有代理
	if len(proxys) > 0 && proxys[0] != "" {
		proxy := proxys[0]
		client.SetProxy(proxy)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("User-Agent", DefaultUserAgent)
	client.SetHeader("Accept", "application/json")
	return client
}
