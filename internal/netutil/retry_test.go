package netutil

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	calls    int32
	respond  func(n int32) (*http.Response, error)
	sawBody  [][]byte
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.sawBody = append(s.sawBody, b)
	}
	return s.respond(n)
}

func newResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strReader(""))}
}

type strReader string

func (s strReader) Read(p []byte) (int, error) { return 0, io.EOF }
func (s strReader) Close() error               { return nil }

func TestRetryTransport_SucceedsWithoutRetryOn2xx(t *testing.T) {
	stub := &stubTransport{respond: func(n int32) (*http.Response, error) { return newResponse(200), nil }}
	rt := NewRetryTransport(stub)

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.EqualValues(t, 1, stub.calls)
}

func TestRetryTransport_RetriesOn5xxThenSucceeds(t *testing.T) {
	stub := &stubTransport{respond: func(n int32) (*http.Response, error) {
		if n < 3 {
			return newResponse(503), nil
		}
		return newResponse(200), nil
	}}
	rt := NewRetryTransport(stub)
	rt.BaseDelay = time.Millisecond
	rt.MaxDelay = 5 * time.Millisecond

	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/", byteReader([]byte("payload")))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.EqualValues(t, 3, stub.calls)
	for _, b := range stub.sawBody {
		assert.Equal(t, "payload", string(b))
	}
}

func TestRetryTransport_GivesUpAfterMaxAttempts(t *testing.T) {
	stub := &stubTransport{respond: func(n int32) (*http.Response, error) { return newResponse(500), nil }}
	rt := NewRetryTransport(stub)
	rt.MaxAttempts = 2
	rt.BaseDelay = time.Millisecond

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.EqualValues(t, 2, stub.calls)
}

func TestRetryTransport_ContextCancellationDuringBackoffIsReported(t *testing.T) {
	stub := &stubTransport{respond: func(n int32) (*http.Response, error) { return newResponse(500), nil }}
	rt := NewRetryTransport(stub)
	rt.BaseDelay = 50 * time.Millisecond
	rt.MaxAttempts = 4

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid/", nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	d := backoff(100*time.Millisecond, 10, 2*time.Second)
	assert.Equal(t, 2*time.Second, d)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}
