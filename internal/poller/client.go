package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// a badge polls a single host, so the pool stays small
const (
	defaultMaxIdleConns        = 4
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of a GET made by [Client].
//
// Body is limited to 1MB. Status carries the full status line as received
// (e.g. "503 Service Unavailable"), which callers use to recover the reason
// phrase when the body has nothing better to say.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Status is the HTTP status line, e.g. "404 Not Found".
	Status string

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any transport-level error.
	// nil means a response was received, whatever its status code.
	Error error
}

// OK reports whether the response carries a 2xx status code.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is an HTTP client wrapper for polling a status endpoint.
//
// Timeouts are applied per request via the context passed to [Client.Fetch]
// rather than as a global client timeout.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a polling [Client] with a small keep-alive pool.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// NewClientWith wraps an existing *http.Client. A nil client falls back to
// [NewClient].
func NewClientWith(hc *http.Client) *Client {
	if hc == nil {
		return NewClient()
	}
	return &Client{httpClient: hc}
}

// Fetch performs a GET against url and returns a structured [Response].
//
// Fetch always returns a Response; errors are captured in the Error field
// rather than returned separately. A timeout of zero or less leaves the
// request bounded only by ctx.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil receiver.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
