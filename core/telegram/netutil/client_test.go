package netutil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}
}

func TestRetryTransportRetriesTimeouts(t *testing.T) {
	calls := 0
	var retried []int
	rt := &RetryTransport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, context.DeadlineExceeded
			}
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "payload", string(body))
			return okResponse(), nil
		}),
		MaxRetries: 3,
		OnRetry:    func(_ *http.Request, attempt int, _ error) { retried = append(retried, attempt) },
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.test", strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{2, 3}, retried)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	rt := &RetryTransport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, boom
		}),
		MaxRetries: 5,
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.test", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(ClientOptions{Retries: 2})
	rt, ok := c.Transport.(*RetryTransport)
	require.True(t, ok)
	assert.Equal(t, 2, rt.MaxRetries)
	assert.Positive(t, c.Timeout)
}
