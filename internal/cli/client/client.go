package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultGatewayURL is where the stats gateway listens unless configured.
const DefaultGatewayURL = "http://localhost:8080"

// TokenSource supplies the current bearer token, if there is one.
type TokenSource interface {
	Token() (string, bool)
}

// RequestOptions are the optional parts of a request.
type RequestOptions struct {
	Headers HeaderInit
	Body    io.Reader
}

// Client sends requests with the current session's bearer token attached.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// New creates a client rooted at baseURL that reads tokens from tokens.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Do sends method to path (relative to the base URL, or absolute) and returns
// the raw response. Status codes are left to the caller.
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, opts RequestOptions) (*http.Request, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}

	var (
		token    string
		hasToken bool
	)
	if c.tokens != nil {
		token, hasToken = c.tokens.Token()
	}

	headers, err := mergeHeaders(opts.Headers, token, hasToken)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers

	return req, nil
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Summary returns the overall visit totals.
func (c *Client) Summary(ctx context.Context) (json.RawMessage, error) {
	return c.getStats(ctx, "summary", nil)
}

// District returns visits grouped by district.
func (c *Client) District(ctx context.Context) (json.RawMessage, error) {
	return c.getStats(ctx, "district", nil)
}

// Quest returns visits grouped by quest location.
func (c *Client) Quest(ctx context.Context) (json.RawMessage, error) {
	return c.getStats(ctx, "quest", nil)
}

// Time returns visits bucketed by unit (hour, day or week). An empty unit
// lets the gateway apply its default.
func (c *Client) Time(ctx context.Context, unit string) (json.RawMessage, error) {
	var query url.Values
	if unit != "" {
		query = url.Values{"unit": {unit}}
	}
	return c.getStats(ctx, "time", query)
}

func (c *Client) getStats(ctx context.Context, kind string, query url.Values) (json.RawMessage, error) {
	path := "/api/analytics/location-stats/" + kind
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.Do(ctx, http.MethodGet, path, RequestOptions{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		message := fmt.Sprintf("failed to fetch %s stats", kind)
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Message: message}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to decode %s stats: invalid JSON", kind)
	}

	return json.RawMessage(body), nil
}
