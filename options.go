package netbadge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/netbadge/internal/netstatus"
)

// nbConfig holds mutable state during NetBadge construction.
type nbConfig struct {
	title          string
	port           int
	logger         *slog.Logger
	proxy          string
	expectProxy    bool
	statusURL      string
	providers      []Provider
	lookupTimeout  time.Duration
	badgeCallbacks []func(Badge)
}

// Option is a function that configures a [NetBadge] instance during
// construction. Options return an error if validation fails.
type Option func(*nbConfig) error

// Provider is an IP geolocation service used by the status endpoint.
type Provider struct {
	// Name identifies the provider in errors and metrics.
	Name string

	// URL is the JSON endpoint describing the caller's IP.
	URL string

	// Format selects payload normalisation: "ipinfo", "ipapi" or "ipwhois".
	// Empty means "ipinfo".
	Format string
}

// WithPort sets the HTTP port for the status API and dashboard.
// Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *nbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "NetBadge".
func WithTitle(title string) Option {
	return func(cfg *nbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *nbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithProxy sets the proxy through which the effective IP is resolved when
// a status request does not name one. Supported schemes are http, https,
// socks5 and socks5h.
func WithProxy(proxy string) Option {
	return func(cfg *nbConfig) error {
		if _, err := netstatus.ParseProxy(proxy); err != nil {
			return err
		}
		cfg.proxy = proxy
		return nil
	}
}

// WithExpectProxy makes every status lookup carry a warning while traffic
// still leaves on the origin IP.
func WithExpectProxy(expect bool) Option {
	return func(cfg *nbConfig) error {
		cfg.expectProxy = expect
		return nil
	}
}

// WithStatusURL points the badge at another netbadge server instead of
// this instance's own status endpoint.
//
// Returns an error if the URL is not an absolute http(s) URL.
func WithStatusURL(rawURL string) Option {
	return func(cfg *nbConfig) error {
		if _, err := statusURLFor(rawURL); err != nil {
			return fmt.Errorf("status URL: %w", err)
		}
		cfg.statusURL = rawURL
		return nil
	}
}

// WithProviders replaces the default provider chain (ipinfo, ipapi,
// ipwhois). Providers are tried in order until one answers.
//
// Returns an error if any provider is invalid.
func WithProviders(providers ...Provider) Option {
	return func(cfg *nbConfig) error {
		if err := netstatus.ValidateProviders(toNetstatusProviders(providers)); err != nil {
			return err
		}
		cfg.providers = append(cfg.providers, providers...)
		return nil
	}
}

// WithLookupTimeout sets the per-provider request timeout used by the
// status endpoint. Defaults to 8 seconds.
//
// Returns an error if the duration is zero or negative.
func WithLookupTimeout(d time.Duration) Option {
	return func(cfg *nbConfig) error {
		if d <= 0 {
			return errors.New("lookup timeout must be positive")
		}
		cfg.lookupTimeout = d
		return nil
	}
}

// WithBadgeCallback registers a function called after every badge render.
//
// Callbacks run synchronously on the poll cycle's goroutine, in
// registration order, and must not block. Panics are recovered and logged.
// Nil callbacks are ignored.
func WithBadgeCallback(cb func(Badge)) Option {
	return func(cfg *nbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.badgeCallbacks = append(cfg.badgeCallbacks, cb)
		return nil
	}
}

func toNetstatusProviders(providers []Provider) []netstatus.Provider {
	out := make([]netstatus.Provider, len(providers))
	for i, p := range providers {
		out[i] = netstatus.Provider{Name: p.Name, URL: p.URL, Format: p.Format}
	}
	return out
}

