package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher(opts FetcherOptions) *Fetcher {
	opts.BaseDelay = time.Millisecond
	opts.MaxDelay = 2 * time.Millisecond
	return NewFetcher(opts)
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "outage-feed-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{UserAgent: "outage-feed-test", MaxRetries: 3})
	body, err := f.Fetch(context.Background(), "unused", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), "unused", srv.URL)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{MaxRetries: 2})
	_, err := f.Fetch(context.Background(), "unused", srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{MaxBody: 16, MaxRetries: 2})
	_, err := f.Fetch(context.Background(), "unused", srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))
}

func TestFetcher_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	f := testFetcher(FetcherOptions{Timeout: 20 * time.Millisecond})
	_, err := f.Fetch(context.Background(), "unused", srv.URL)
	require.Error(t, err)
}

func TestFetcher_Offline(t *testing.T) {
	f := NewFetcher(FetcherOptions{Offline: true, FixturesDir: "testdata/fixtures"})
	assert.True(t, f.Offline())

	body, err := f.Fetch(context.Background(), "tcn", "https://unreachable.invalid")
	require.NoError(t, err)
	assert.Contains(t, string(body), "TCN News")

	_, err = f.Fetch(context.Background(), "missing", "https://unreachable.invalid")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, shouldRetry(nil))
	assert.False(t, shouldRetry(context.Canceled))
	assert.True(t, shouldRetry(errors.New("connection reset")))
	assert.True(t, shouldRetry(&StatusError{Code: http.StatusBadGateway}))
	assert.False(t, shouldRetry(&StatusError{Code: http.StatusForbidden}))
}
