package httputil_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chankeeper/chankeeper/internal/common/httputil"
	"github.com/chankeeper/chankeeper/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCircuitBreaker_FastFailure(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount++

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{
		ExternalRequestTimeout:     1 * time.Second,
		RetryCount:                 1,
		RetryBackoff:               50 * time.Millisecond,
		RetryableStatusCodes:       []int{500, 502, 503, 504},
		CBSlidingWindowSize:        1,
		CBMinimumRequiredCalls:     1,
		CBFailureRateThreshold:     100,
		CBPermittedCallsInHalfOpen: 1,
		CBWaitDurationInOpenState:  2 * time.Second,
	}

	client := httputil.CreateResilientHTTPClient(cfg, testLogger(), "test_service")

	_, err := client.R().Get(server.URL + "/test")
	require.Error(t, err)

	initialRequestCount := requestCount

	start := time.Now()
	_, err = client.R().Get(server.URL + "/test")
	duration := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Less(t, duration, 200*time.Millisecond, "an open breaker answers without touching the server")
	assert.LessOrEqual(t, requestCount, initialRequestCount+1)
}

func TestRetryWithBackoff(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount++
		if requestCount <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("success"))
		}
	}))
	defer server.Close()

	cfg := &config.Config{
		ExternalRequestTimeout:     5 * time.Second,
		RetryCount:                 3,
		RetryBackoff:               100 * time.Millisecond,
		RetryableStatusCodes:       []int{500, 502, 503, 504},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     10,
		CBFailureRateThreshold:     90,
		CBPermittedCallsInHalfOpen: 3,
		CBWaitDurationInOpenState:  10 * time.Second,
	}

	client := httputil.CreateResilientHTTPClient(cfg, testLogger(), "test_service")

	resp, err := client.R().Get(server.URL + "/test")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 3, requestCount, "two failures, then one success")
}

func TestNonRetryableStatus(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount++

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &config.Config{
		ExternalRequestTimeout:     5 * time.Second,
		RetryCount:                 3,
		RetryBackoff:               100 * time.Millisecond,
		RetryableStatusCodes:       []int{500, 502, 503, 504},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     10,
		CBFailureRateThreshold:     90,
		CBPermittedCallsInHalfOpen: 3,
		CBWaitDurationInOpenState:  10 * time.Second,
	}

	client := httputil.CreateResilientHTTPClient(cfg, testLogger(), "test_service")

	resp, err := client.R().Get(server.URL + "/test")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, 1, requestCount, "a 404 is final, not retried")
}
