package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ErrFixtureNotFound is returned in offline mode when no fixture file exists
// for an adapter.
var ErrFixtureNotFound = errors.New("fixture not found")

// ErrBodyTooLarge is returned when a response exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// DefaultMaxBody caps how much of a response is read.
const DefaultMaxBody = 5 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBody     int64
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Offline     bool
	FixturesDir string
	Client      *http.Client
}

// Fetcher performs the single GET an adapter needs, or reads its fixture in
// offline mode. It is safe for concurrent use.
type Fetcher struct {
	opts     FetcherOptions
	client   *http.Client
	executor failsafe.Executor[[]byte]
}

// NewFetcher creates a Fetcher, filling unset options with defaults.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = 4 * opts.BaseDelay
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(opts.BaseDelay, opts.MaxDelay).
		WithMaxRetries(opts.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return shouldRetry(err)
		}).
		Build()

	return &Fetcher{
		opts:     opts,
		client:   client,
		executor: failsafe.With[[]byte](retry),
	}
}

// Offline reports whether the fetcher serves fixtures instead of the network.
func (f *Fetcher) Offline() bool { return f.opts.Offline }

// Fetch returns the document at url, or the fixture named fixture in offline mode.
func (f *Fetcher) Fetch(ctx context.Context, fixture, url string) ([]byte, error) {
	if f.opts.Offline {
		return f.readFixture(fixture)
	}
	body, err := f.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.opts.MaxBody)
	}
	return body, nil
}

// readFixture loads FixturesDir/<name>.* and picks the first match by name.
func (f *Fetcher) readFixture(name string) ([]byte, error) {
	matches, err := filepath.Glob(filepath.Join(f.opts.FixturesDir, name+".*"))
	if err != nil {
		return nil, fmt.Errorf("glob fixture %q: %w", name, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrFixtureNotFound, name, f.opts.FixturesDir)
	}
	sort.Strings(matches)
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return data, nil
}

// shouldRetry retries network failures, 5xx and 429. Cancellation is final.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}
