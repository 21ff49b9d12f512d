// Package upstream talks to the analytics API that owns the location
// statistics. The gateway forwards the caller's bearer token on every call and
// keeps no credentials of its own.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/qos-dev/qosdash/internal/metrics"
)

const (
	breakerName = "analytics-api"

	// maxLoggedBody caps how much of a failed upstream body ends up in logs
	maxLoggedBody = 512
)

// ErrInvalidJSON is returned when a 2xx upstream body is not valid JSON.
var ErrInvalidJSON = errors.New("upstream returned invalid JSON")

// Failure describes an upstream call that did not produce a usable body.
// Status is zero when no HTTP response was received.
type Failure struct {
	Endpoint string
	Status   int
	Body     string
	Err      error

	// callerGone is set when the caller's context ended before the upstream
	// answered; the breaker does not count these.
	callerGone bool
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("API request failed: %s: %v", f.Endpoint, f.Err)
	}
	return fmt.Sprintf("API request failed: %s: %d", f.Endpoint, f.Status)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// clientError reports whether the upstream rejected the request itself
// (expired token, bad query), as opposed to being unhealthy.
func (f *Failure) clientError() bool {
	return f.Status >= 400 && f.Status < 500
}

// Client fetches statistics from the analytics API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every upstream call. Zero keeps the HTTP client's own
// timeout. It is applied after all options, on a copy of the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used for failure details.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCircuitBreaker trips after maxFailures consecutive upstream failures and
// fails fast for openTimeout before probing again.
func WithCircuitBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		c.breaker = newBreaker(maxFailures, openTimeout, c)
	}
}

// New creates a client for the analytics API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		httpClient := *c.httpClient
		httpClient.Timeout = c.timeout
		c.httpClient = &httpClient
	}

	return c
}

func newBreaker(maxFailures uint32, openTimeout time.Duration, c *Client) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var failure *Failure
			if errors.As(err, &failure) && (failure.clientError() || failure.callerGone) {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Fetch performs GET {baseURL}{endpoint}?{query} with the caller's bearer
// token and returns the raw JSON body of a 2xx response. Every other outcome
// is a *Failure.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values, token string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var (
		body []byte
		err  error
	)
	if c.breaker != nil {
		body, err = c.breaker.Execute(func() ([]byte, error) {
			body, err := c.fetch(ctx, endpoint, query, token)
			var failure *Failure
			if err != nil && ctx.Err() != nil && errors.As(err, &failure) {
				failure.callerGone = true
			}
			return body, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeRejected).Inc()
			return nil, &Failure{Endpoint: endpoint, Err: err}
		}
	} else {
		body, err = c.fetch(ctx, endpoint, query, token)
	}

	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeFailure).Inc()
		return nil, err
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeSuccess).Inc()
	return body, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, query url.Values, token string) ([]byte, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Failure{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Failure{Endpoint: endpoint, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(string(data), maxLoggedBody)}
	}

	if !json.Valid(data) {
		return nil, &Failure{Endpoint: endpoint, Err: ErrInvalidJSON}
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
