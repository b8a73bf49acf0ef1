// Package metrics 网关调用指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 传输层指标
type Collector struct {
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	FailuresTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewCollector 在 reg 上注册指标，同一个 reg 只能注册一次
// reg 为 nil 时使用独立的注册器，指标不对外暴露
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Collector{
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bepusdt_http_attempts_total",
			Help: "HTTP attempts against the payment gateway",
		}, []string{"method", "status"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bepusdt_http_retries_total",
			Help: "Retries scheduled after a transient failure",
		}, []string{"method", "kind"}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bepusdt_http_failures_total",
			Help: "Logical calls that ended with a classified error",
		}, []string{"method", "kind"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bepusdt_http_request_duration_seconds",
			Help:    "Duration of a logical call including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// ObserveAttempt statusCode 为 0 表示没有收到响应
func (c *Collector) ObserveAttempt(method string, statusCode int) {
	if c == nil {
		return
	}
	status := "none"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.AttemptsTotal.WithLabelValues(method, status).Inc()
}

func (c *Collector) ObserveRetry(method, kind string) {
	if c == nil {
		return
	}
	c.RetriesTotal.WithLabelValues(method, kind).Inc()
}

func (c *Collector) ObserveFailure(method, kind string) {
	if c == nil {
		return
	}
	c.FailuresTotal.WithLabelValues(method, kind).Inc()
}

func (c *Collector) ObserveDuration(method string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}
