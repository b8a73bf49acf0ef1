package http_client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/assimon/bepusdt/util/constant"
	"github.com/assimon/bepusdt/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type step func(*http.Request) (*http.Response, error)

// scriptedTransport 按顺序返回预设结果，超出后重复最后一步
type scriptedTransport struct {
	mu    sync.Mutex
	steps []step
	calls int
	times []time.Time
}

func (s *scriptedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.times = append(s.times, time.Now())
	s.mu.Unlock()
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i](r)
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func connRefused(*http.Request) (*http.Response, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

func timedOut(*http.Request) (*http.Response, error) {
	return nil, timeoutError{}
}

func reply(code int, body string) step {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: code,
			Status:     http.StatusText(code),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	}
}

// recordSleeps 替换等待函数，只记录退避时长
func recordSleeps(tr *Transport) *[]time.Duration {
	var delays []time.Duration
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return &delays
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
	assert.Equal(t, 4, p.Attempts())
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.NoError(t, p.Validate())

	assert.Error(t, RetryPolicy{MaxRetries: -1, BaseDelay: time.Second}.Validate())
	assert.Error(t, RetryPolicy{MaxRetries: 1}.Validate())
	assert.Equal(t, DefaultRetryPolicy(), p)
}

func TestExecuteRetriesConnectionErrorsWithBackoff(t *testing.T) {
	rt := &scriptedTransport{steps: []step{
		connRefused, connRefused, connRefused,
		reply(200, `{"status_code":200,"message":"success"}`),
	}}
	core, logs := observer.New(zap.WarnLevel)
	tr := NewTransport(
		WithRoundTripper(rt),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}),
		WithLogger(zap.New(core)),
	)
	delays := recordSleeps(tr)

	resp, err := tr.Execute(context.Background(), &Request{Method: http.MethodPost, URL: "http://gateway.test/api", Body: []byte(`{}`), Idempotent: true})
	require.NoError(t, err)

	assert.Equal(t, 4, rt.Calls())
	assert.Equal(t, 4, resp.Attempts)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "success")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *delays)

	retries := logs.FilterMessage("请求失败，准备重试").All()
	require.Len(t, retries, 3)
	for i, entry := range retries {
		fields := entry.ContextMap()
		assert.EqualValues(t, i+1, fields["attempt"])
		assert.Equal(t, "network", fields["kind"])
	}
}

func TestExecuteRealBackoffTiming(t *testing.T) {
	rt := &scriptedTransport{steps: []step{connRefused, connRefused, reply(200, `{}`)}}
	tr := NewTransport(
		WithRoundTripper(rt),
		WithRetryPolicy(RetryPolicy{MaxRetries: 2, BaseDelay: 30 * time.Millisecond}),
	)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "http://gateway.test/x", Idempotent: true})
	require.NoError(t, err)
	require.Len(t, rt.times, 3)

	first := rt.times[1].Sub(rt.times[0])
	second := rt.times[2].Sub(rt.times[1])
	assert.GreaterOrEqual(t, first, 30*time.Millisecond)
	assert.GreaterOrEqual(t, second, 60*time.Millisecond)
	assert.Less(t, first, 60*time.Millisecond+500*time.Millisecond)
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status_code":400,"message":"参数错误"}`)
	}))
	defer srv.Close()

	tr := NewTransport(WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}))
	delays := recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodPost, URL: srv.URL, Body: []byte(`{}`), Idempotent: true})
	require.Error(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Empty(t, *delays)
	assert.True(t, errors.Is(err, constant.ErrClient))
	assert.False(t, constant.IsRetryable(err))

	var gwErr *constant.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 400, gwErr.StatusCode)
	assert.Equal(t, 400, gwErr.Code)
	assert.Equal(t, "参数错误", gwErr.Message)
	assert.Equal(t, 1, gwErr.Attempts)
}

func TestExecuteTimeoutExhaustion(t *testing.T) {
	rt := &scriptedTransport{steps: []step{timedOut}}
	tr := NewTransport(
		WithRoundTripper(rt),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}),
	)
	delays := recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "http://gateway.test/pay/check-status/T1", Idempotent: true})
	require.Error(t, err)

	assert.Equal(t, 4, rt.Calls())
	assert.Len(t, *delays, 3)
	assert.True(t, errors.Is(err, constant.ErrTimeout))

	var gwErr *constant.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 4, gwErr.Attempts)
	assert.Error(t, gwErr.Err)
}

func TestExecuteServerErrorExhaustion(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewTransport(WithRetryPolicy(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}))
	recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, Idempotent: true})
	require.Error(t, err)

	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.Equal(t, constant.KindServer, constant.KindOf(err))

	var gwErr *constant.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Contains(t, gwErr.Message, "bad gateway")
}

func TestExecuteServerErrorThenSuccess(t *testing.T) {
	rt := &scriptedTransport{steps: []step{reply(503, "busy"), reply(200, `{"ok":true}`)}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 1, BaseDelay: time.Second}))
	delays := recordSleeps(tr)

	resp, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "http://gateway.test/", Idempotent: true})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, *delays)
}

func TestExecuteNonIdempotentTimeoutNotRetried(t *testing.T) {
	rt := &scriptedTransport{steps: []step{timedOut, reply(200, `{}`)}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}))
	recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodPost, URL: "http://gateway.test/", Body: []byte(`{}`)})
	require.Error(t, err)
	assert.Equal(t, 1, rt.Calls())
	assert.Equal(t, constant.KindTimeout, constant.KindOf(err))
}

func TestExecuteNonIdempotentStillRetriesConnectionErrors(t *testing.T) {
	rt := &scriptedTransport{steps: []step{connRefused, reply(200, `{}`)}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}))
	recordSleeps(tr)

	resp, err := tr.Execute(context.Background(), &Request{Method: http.MethodPost, URL: "http://gateway.test/", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
}

func TestExecuteZeroRetries(t *testing.T) {
	rt := &scriptedTransport{steps: []step{connRefused}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}))
	delays := recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "http://gateway.test/", Idempotent: true})
	require.Error(t, err)
	assert.Equal(t, 1, rt.Calls())
	assert.Empty(t, *delays)
	assert.True(t, errors.Is(err, constant.ErrNetwork))
}

func TestExecuteCanceledDuringBackoff(t *testing.T) {
	rt := &scriptedTransport{steps: []step{connRefused}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := tr.Execute(ctx, &Request{Method: http.MethodGet, URL: "http://gateway.test/", Idempotent: true})
	require.Error(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, rt.Calls())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, constant.KindOther, constant.KindOf(err))
}

func TestExecuteDeadlineDuringBackoff(t *testing.T) {
	rt := &scriptedTransport{steps: []step{connRefused}}
	tr := NewTransport(WithRoundTripper(rt), WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := tr.Execute(ctx, &Request{Method: http.MethodGet, URL: "http://gateway.test/", Idempotent: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, constant.KindTimeout, constant.KindOf(err))
}

func TestExecuteSendsQueryAndBody(t *testing.T) {
	var gotQuery, gotBody, gotType, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("trade_id")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	tr := NewTransport(WithUserAgent("test-agent"))
	_, err := tr.Execute(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Query:  map[string]string{"trade_id": "T1"},
		Body:   []byte(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", gotQuery)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Contains(t, gotType, "application/json")
	assert.Equal(t, "test-agent", gotUA)
}

func TestExecuteRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	rt := &scriptedTransport{steps: []step{connRefused, reply(200, `{}`)}}
	tr := NewTransport(WithRoundTripper(rt), WithMetrics(collector), WithRetryPolicy(RetryPolicy{MaxRetries: 1, BaseDelay: time.Second}))
	recordSleeps(tr)

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "http://gateway.test/", Idempotent: true})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.AttemptsTotal.WithLabelValues("GET", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.AttemptsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RetriesTotal.WithLabelValues("GET", "network")))
}

func TestExecuteConcurrentCallers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Query().Get("n"))
	}))
	defer srv.Close()

	tr := NewTransport()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			want := string(rune('a' + n))
			resp, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, Query: map[string]string{"n": want}, Idempotent: true})
			if assert.NoError(t, err) {
				assert.Equal(t, want, string(resp.Body))
			}
		}(i)
	}
	wg.Wait()
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, constant.KindTimeout, classifyError(context.DeadlineExceeded))
	assert.Equal(t, constant.KindOther, classifyError(context.Canceled))
	assert.Equal(t, constant.KindTimeout, classifyError(timeoutError{}))
	assert.Equal(t, constant.KindNetwork, classifyError(&net.DNSError{Err: "no such host", Name: "x"}))
	assert.Equal(t, constant.KindNetwork, classifyError(io.ErrUnexpectedEOF))
}
