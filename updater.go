package netbadge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/netbadge/internal/poller"
)

const defaultRequestTimeout = 10 * time.Second

// Updater fetches the network status and renders it into a [Sink].
//
// Updater is the unit of one poll cycle. It holds no state between cycles:
// every call to [Updater.Refresh] decodes a fresh payload and renders it.
// Use [Watch] to run it on the fixed [PollInterval].
type Updater struct {
	statusURL string
	sink      Sink
	client    *poller.Client
	timeout   time.Duration
	logger    *slog.Logger
}

// updaterConfig holds mutable state during Updater construction.
type updaterConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// UpdaterOption configures an [Updater] during construction.
type UpdaterOption func(*updaterConfig) error

// WithHTTPClient sets the HTTP client used for status requests.
func WithHTTPClient(hc *http.Client) UpdaterOption {
	return func(cfg *updaterConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) UpdaterOption {
	return func(cfg *updaterConfig) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithUpdaterLogger sets the logger for cycle diagnostics.
// Defaults to slog.Default().
func WithUpdaterLogger(logger *slog.Logger) UpdaterOption {
	return func(cfg *updaterConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// NewUpdater creates an [Updater] that polls baseURL + [StatusPath] and
// renders into sink.
//
// A nil sink stands for a host page without a badge: the Updater is valid
// but every [Updater.Refresh] is a no-op.
//
// Returns an error if baseURL is not an absolute http(s) URL or an option
// is invalid.
func NewUpdater(baseURL string, sink Sink, opts ...UpdaterOption) (*Updater, error) {
	statusURL, err := statusURLFor(baseURL)
	if err != nil {
		return nil, err
	}

	cfg := &updaterConfig{timeout: defaultRequestTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Updater{
		statusURL: statusURL,
		sink:      sink,
		client:    poller.NewClientWith(cfg.httpClient),
		timeout:   cfg.timeout,
		logger:    logger,
	}, nil
}

// statusURLFor validates baseURL and appends [StatusPath].
func statusURLFor(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("base URL must have a host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + StatusPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// StatusURL returns the full URL polled by the updater.
func (u *Updater) StatusURL() string {
	return u.statusURL
}

// Refresh runs one poll cycle.
//
// It fetches the status, renders the outcome into the sink and returns.
// Every failure (transport, non-2xx status, malformed body) is rendered as
// an error badge; nothing propagates to the caller and nothing is retried
// within the cycle.
func (u *Updater) Refresh(ctx context.Context) {
	if u.sink == nil {
		return
	}

	status, err := u.fetch(ctx)
	if err != nil {
		u.logger.Debug("network status refresh failed", "url", u.statusURL, "error", err.Error())
		u.sink.Render(RenderFailure(err))
		return
	}

	u.sink.Render(RenderStatus(status))
}

// fetch performs the GET and decodes the payload.
func (u *Updater) fetch(ctx context.Context) (NetworkStatus, error) {
	resp := u.client.Fetch(ctx, u.statusURL, u.timeout)
	if resp.Error != nil {
		return NetworkStatus{}, resp.Error
	}

	if !resp.OK() {
		return NetworkStatus{}, errors.New(failureMessage(resp))
	}

	// A JSON null decodes into a struct without error, so decode through a
	// pointer and require an object.
	var status *NetworkStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return NetworkStatus{}, fmt.Errorf("failed to decode status: %w", err)
	}
	if status == nil {
		return NetworkStatus{}, errors.New("failed to decode status: body is null")
	}

	u.logger.Debug("network status refreshed",
		"url", u.statusURL,
		"latency_ms", resp.Latency.Milliseconds(),
	)
	return *status, nil
}

// failureMessage extracts the message for a non-2xx response: the body's
// "error" field if it holds a truthy scalar, else the status line's reason
// phrase.
func failureMessage(resp poller.Response) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if msg := scalarText(body.Error); msg != "" {
			return msg
		}
	}
	return statusText(resp)
}

// scalarText renders a JSON scalar as message text. Falsy values (null,
// false, zero, the empty string) and composite values yield "".
func scalarText(raw json.RawMessage) string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
	case float64:
		if x != 0 {
			return strings.TrimSpace(string(raw))
		}
	}
	return ""
}

// statusText returns the reason phrase of the status line, falling back to
// the canonical text for the code.
func statusText(resp poller.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason != "" {
		return reason
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// Close releases idle connections held by the updater.
func (u *Updater) Close() {
	u.client.Close()
}
