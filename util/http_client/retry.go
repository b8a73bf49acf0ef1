package http_client

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// maxBackoffShift 防止位移溢出
const maxBackoffShift = 30

// RetryPolicy 重试策略，Client 生命周期内不可变
type RetryPolicy struct {
	MaxRetries int           // 首次请求之外的最大重试次数
	BaseDelay  time.Duration // 首次重试前的等待，之后指数翻倍
}

// DefaultRetryPolicy 默认重试 3 次，间隔 1s、2s、4s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

// Validate 校验策略
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.Errorf("max_retries 不能为负数: %d", p.MaxRetries)
	}
	if p.BaseDelay <= 0 {
		return errors.Errorf("base_delay 必须大于 0: %s", p.BaseDelay)
	}
	return nil
}

// Attempts 总请求次数
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Backoff 第 attempt 次（从 0 开始）失败后的等待时间 base * 2^attempt
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
