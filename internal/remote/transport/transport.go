// Package transport provides the HTTP client shared by the remote adapters:
// client-side rate limiting, exponential retry and a circuit breaker.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/discochess/barback/internal/remote"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s returned status %d", e.URL, e.Code)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client performs GET requests against a single upstream API.
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type settings struct {
	httpClient       *http.Client
	timeout          time.Duration
	ratePerSecond    float64
	burst            int
	maxRetries       uint64
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	breakerFailures  uint32
	breakerOpenDelay time.Duration
	logger           *zap.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithTimeout sets the per-attempt timeout. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithRateLimit limits outgoing requests. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		s.ratePerSecond = perSecond
		s.burst = burst
	}
}

// WithMaxRetries sets how many times a failed attempt is retried. Default is 3.
func WithMaxRetries(n uint64) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(s *settings) {
		s.initialBackoff = initial
		s.maxBackoff = maxInterval
	}
}

// WithBreaker opens the circuit after failures consecutive failed requests and
// keeps it open for openDelay.
func WithBreaker(failures uint32, openDelay time.Duration) Option {
	return func(s *settings) {
		s.breakerFailures = failures
		s.breakerOpenDelay = openDelay
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New creates a Client. The name identifies the circuit breaker in logs.
func New(name string, opts ...Option) *Client {
	s := settings{
		timeout:          10 * time.Second,
		maxRetries:       3,
		initialBackoff:   200 * time.Millisecond,
		maxBackoff:       5 * time.Second,
		breakerFailures:  5,
		breakerOpenDelay: 30 * time.Second,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.ratePerSecond > 0 {
		burst := s.burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.ratePerSecond), burst)
	}

	logger := s.logger.With(zap.String("upstream", name))
	failures := s.breakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.breakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client errors and cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && !se.Retryable()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:           s.httpClient,
		limiter:        limiter,
		breaker:        breaker,
		logger:         logger,
		maxRetries:     s.maxRetries,
		initialBackoff: s.initialBackoff,
		maxBackoff:     s.maxBackoff,
	}
}

// Get fetches url and returns the response body of a 2xx response.
// Non-2xx responses are reported as *StatusError. When the circuit is open the
// error wraps remote.ErrUnavailable.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.getWithRetry(ctx, url, header)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", remote.ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) getWithRetry(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := c.do(ctx, url, header)
		if err == nil {
			body = b
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		c.logger.Debug("request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	return b
}

func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}
