package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/atxevents/atx-events/internal/logger"
)

// DefaultUserAgent mimics a desktop browser; several of the listing sites
// serve reduced markup to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/104.0.5112.79 Safari/537.36"

// Config holds fetcher settings. Explicit rather than ambient so tests can
// run with tiny backoff intervals and fakes.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	UserAgent      string
}

// DefaultConfig returns the production fetcher settings: 3 attempts with
// exponential backoff starting at 500ms.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		UserAgent:      DefaultUserAgent,
	}
}

// FetchError reports a request that could not be completed, either because
// retries were exhausted or because the server rejected it outright.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Fetcher retrieves remote documents over HTTP with bounded retry. It keeps
// no cookies and caches nothing.
type Fetcher struct {
	client *http.Client
	cfg    Config
}

// New creates a Fetcher. Zero config fields fall back to defaults.
func New(cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Fetch retrieves the document at rawURL with the standard header set.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f.FetchWithHeaders(ctx, rawURL, nil)
}

// FetchWithHeaders retrieves rawURL with extra headers layered over the
// standard set. Timeouts, connection errors, 5xx, and 429 are retried up to
// the attempt ceiling with doubling backoff; other 4xx fail immediately.
func (f *Fetcher) FetchWithHeaders(ctx context.Context, rawURL string, extra http.Header) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid fetch url %q", rawURL)
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept", "text/html, application/xhtml+xml, application/json")
		// Accept-Encoding is left to the transport so responses arrive
		// transparently decompressed.
		req.Header.Set("Accept-Language", "en-US, en; q=0.5")
		for key, values := range extra {
			for _, v := range values {
				req.Header.Set(key, v)
			}
		}

		resp, err := f.client.Do(req)
		if err != nil {
			logger.Debug("fetch attempt failed", logger.Fields{
				"url":     rawURL,
				"attempt": attempt,
			})
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			logger.Debug("fetch attempt got retryable status", logger.Fields{
				"url":     rawURL,
				"status":  resp.StatusCode,
				"attempt": attempt,
			})
			return fmt.Errorf("status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.cfg.InitialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 30 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	return body, nil
}
