// Package dou talks to the Diário Oficial da União website: it lists the
// entries of a day and section, downloads entry pages and extracts their fields.
package dou

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const userAgent = "GazetteScanner/1.0"

// FetcherOptions tunes the HTTP fetcher. Zero values fall back to defaults.
type FetcherOptions struct {
	Timeout           time.Duration
	Attempts          int
	Backoff           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// DefaultFetcherOptions mirrors the publisher's tolerance: 15s per request, 3 attempts.
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:           15 * time.Second,
		Attempts:          3,
		Backoff:           time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// HTTPFetcher downloads pages with retries and a shared rate limit.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    FetcherOptions
	logger  *slog.Logger
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets one with opts.Timeout.
func NewHTTPFetcher(client *http.Client, opts FetcherOptions, log *slog.Logger) *HTTPFetcher {
	def := DefaultFetcherOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = def.RequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = def.Burst
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
		logger:  log,
	}
}

// Fetch GETs url. Any failure is returned as *domain.TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (domain.FetchResult, error) {
	var lastErr *domain.TransportError
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, f.opts.Backoff*time.Duration(attempt-1)); err != nil {
				return domain.FetchResult{}, classify(url, err)
			}
		}

		result, err := f.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		f.debug("fetch attempt failed", "url", url, "attempt", attempt, "kind", err.Kind)
	}
	return domain.FetchResult{}, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (domain.FetchResult, *domain.TransportError) {
	if err := f.limiter.Wait(ctx); err != nil {
		return domain.FetchResult{}, classify(url, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FetchResult{}, &domain.TransportError{Kind: domain.TransportOther, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.FetchResult{}, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.FetchResult{}, &domain.TransportError{Kind: domain.TransportBadStatus, URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FetchResult{}, classify(url, err)
	}

	return domain.FetchResult{URL: url, StatusCode: resp.StatusCode, Content: body}, nil
}

func classify(url string, err error) *domain.TransportError {
	kind := domain.TransportOther

	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.TransportTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = domain.TransportTimeout
	case errors.As(err, &dnsErr):
		kind = domain.TransportConnectFailure
	case errors.As(err, &opErr) && opErr.Op == "dial":
		kind = domain.TransportConnectFailure
	}

	return &domain.TransportError{Kind: kind, URL: url, Err: err}
}

func retryable(err *domain.TransportError) bool {
	switch err.Kind {
	case domain.TransportTimeout, domain.TransportConnectFailure:
		return true
	case domain.TransportBadStatus:
		return err.Status >= http.StatusInternalServerError || err.Status == http.StatusTooManyRequests
	default:
		return !errors.Is(err.Err, context.Canceled)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait before retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (f *HTTPFetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
