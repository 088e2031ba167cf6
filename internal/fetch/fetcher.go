// Package fetch implements the resilient HTTP retrieval layer using gocolly.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/metrics"
)

// Defaults applied when an Options field is left zero.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = time.Second
)

// Options controls a single logical fetch: per-attempt timeout, retry count,
// linear backoff base, and extra request headers merged over the browser
// identity defaults.
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	Headers     http.Header
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	return o
}

// Client performs HTTP GETs against the catalog site via Colly collectors.
// It holds no mutable state across calls; each attempt builds its own
// collector around the shared transport, so per-call timeouts never leak
// between concurrent fetches. Cloned collectors share one http.Client, whose
// Timeout field SetRequestTimeout mutates; only the Transport is safe to
// share.
type Client struct {
	userAgent string
	transport *http.Transport
	logger    *zap.Logger
}

// New builds a Client. userAgent is the fixed browser identity sent with
// every request.
func New(userAgent string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		userAgent: userAgent,
		transport: newHTTPTransport(),
		logger:    logger,
	}
}

// terminalError marks a failure that must not be retried.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Fetch performs one logical GET with bounded retry and linear backoff.
// HTTP statuses in [400,500) are terminal; all other non-2xx statuses and
// transport-level errors are retried until attempts are exhausted, after
// which a network-kind error is returned.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	if rawURL == "" {
		return nil, catalog.NewError(catalog.KindInvalidArgs, "fetch", errors.New("empty url"))
	}
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.ObserveFetchRetry()
			if err := sleepCtx(ctx, opts.BackoffBase*time.Duration(attempt)); err != nil {
				return nil, catalog.NewError(catalog.KindNetwork, "fetch", err)
			}
		}

		body, err := c.attempt(ctx, rawURL, opts)
		if err == nil {
			metrics.ObserveFetch("ok")
			return body, nil
		}
		lastErr = err

		var terminal *terminalError
		if errors.As(err, &terminal) {
			metrics.ObserveFetch("terminal")
			return nil, catalog.NewError(catalog.KindNetwork, "fetch", terminal.err)
		}
		c.logger.Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	metrics.ObserveFetch("exhausted")
	return nil, catalog.NewError(catalog.KindNetwork, "fetch", lastErr)
}

// Text fetches and decodes the body as a string.
func (c *Client) Text(ctx context.Context, rawURL string, opts Options) (string, error) {
	body, err := c.Fetch(ctx, rawURL, opts)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON fetches and unmarshals the body into out. Decoding failures are
// surfaced as network-kind errors: from the caller's perspective the
// endpoint failed to deliver a usable payload.
func (c *Client) JSON(ctx context.Context, rawURL string, opts Options, out any) error {
	body, err := c.Fetch(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return catalog.NewError(catalog.KindNetwork, "fetch json", fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	collector := colly.NewCollector(colly.Async(false))
	collector.AllowURLRevisit = true
	collector.WithTransport(c.transport)
	if c.userAgent != "" {
		collector.UserAgent = c.userAgent
	}
	collector.SetRequestTimeout(opts.Timeout)

	var (
		body     []byte
		fetchErr error
		once     sync.Once
	)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		for key, values := range opts.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			body = append([]byte(nil), r.Body...)
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		once.Do(func() {
			fetchErr = classify(r, err)
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		// OnError sees the response and classifies with the status code;
		// prefer it over the bare error Visit returns for the same failure.
		if fetchErr != nil {
			return nil, fetchErr
		}
		if visitErr != nil {
			return nil, classify(nil, visitErr)
		}
		return body, nil
	}
}

// classify decides whether a failed attempt may be retried. Colly reports
// non-2xx statuses through OnError with the response attached.
func classify(r *colly.Response, err error) error {
	if r != nil && r.StatusCode >= 400 && r.StatusCode < 500 {
		return &terminalError{err: fmt.Errorf("status %d: %w", r.StatusCode, err)}
	}
	if r != nil && r.StatusCode >= 500 {
		return fmt.Errorf("status %d: %w", r.StatusCode, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
