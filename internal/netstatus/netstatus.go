package netstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLookupTimeout = 8 * time.Second
	maxProviderBodySize  = 64 << 10

	// MullvadProxy is the local SOCKS5 endpoint exposed by the Mullvad client.
	MullvadProxy = "socks5h://127.0.0.1:1080"

	originIPWarning = "Still on the origin IP. Traffic may not be going through the proxy/VPN."
)

// Provider formats understood by the lookup.
const (
	FormatIPInfo  = "ipinfo"
	FormatIPAPI   = "ipapi"
	FormatIPWhois = "ipwhois"
)

// Provider is an IP geolocation service queried during a lookup.
type Provider struct {
	// Name identifies the provider in errors and metrics.
	Name string `yaml:"name"`

	// URL is the JSON endpoint describing the caller's IP.
	URL string `yaml:"url"`

	// Format selects how the payload is normalised: ipinfo, ipapi or ipwhois.
	Format string `yaml:"format"`
}

// DefaultProviders is the fallback chain used when none is configured.
// Providers are tried in order until one answers.
var DefaultProviders = []Provider{
	{Name: "ipinfo", URL: "https://ipinfo.io/json", Format: FormatIPInfo},
	{Name: "ipapi", URL: "https://ipapi.co/json/", Format: FormatIPAPI},
	{Name: "ipwhois", URL: "https://ipwho.is/", Format: FormatIPWhois},
}

// Status is the network status snapshot served at /api/network/status.
//
// Nullable fields are pointers so that absent values encode as JSON null.
type Status struct {
	CheckedAt   string  `json:"checked_at"`
	EffectiveIP *string `json:"effective_ip"`
	OriginIP    *string `json:"origin_ip"`
	City        *string `json:"city"`
	Region      *string `json:"region"`
	Country     *string `json:"country"`
	Org         *string `json:"org"`
	ProxyUsed   bool    `json:"proxy_used"`
	IsOriginIP  bool    `json:"is_origin_ip"`
	Warning     *string `json:"warning"`
	Error       *string `json:"error"`
}

// ipInfo is a provider payload normalised to a common shape.
type ipInfo struct {
	IP      string
	City    string
	Region  string
	Country string
	Org     string
}

// Resolver looks up the origin and effective IP of this host.
//
// The origin IP is resolved over a direct connection; the effective IP is
// resolved through the requested proxy, if any. Resolver is safe for
// concurrent use.
type Resolver struct {
	providers       []Provider
	timeout         time.Duration
	logger          *slog.Logger
	onProviderError func(provider string)
	direct          *http.Client
}

// NewResolver creates a [Resolver].
//
// An empty providers list uses [DefaultProviders]; a non-positive timeout
// uses 8 seconds. onProviderError, if non-nil, is called with the provider
// name each time a provider fails.
func NewResolver(providers []Provider, timeout time.Duration, logger *slog.Logger, onProviderError func(provider string)) *Resolver {
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	cp := make([]Provider, len(providers))
	copy(cp, providers)

	return &Resolver{
		providers:       cp,
		timeout:         timeout,
		logger:          logger,
		onProviderError: onProviderError,
		direct:          &http.Client{Transport: &http.Transport{Proxy: nil}},
	}
}

// ParseProxy validates a proxy URL. An empty string means no proxy.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("proxy scheme must be http, https, socks5 or socks5h, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("proxy URL must have a host")
	}
	return u, nil
}

// Lookup resolves the current network status.
//
// Lookup never returns an error: lookup failures are reported in the
// Status's Error field. A warning is set when expectProxy is true but the
// effective IP equals the origin IP.
func (r *Resolver) Lookup(ctx context.Context, proxy *url.URL, expectProxy bool) Status {
	status := Status{
		CheckedAt: time.Now().UTC().Format(time.RFC3339Nano),
		ProxyUsed: proxy != nil,
	}

	origin, err := r.fetch(ctx, r.direct)
	if err != nil {
		status.Error = strPtr("origin lookup failed: " + err.Error())
		return status
	}
	status.OriginIP = optional(origin.IP)

	client := r.direct
	if proxy != nil {
		client = &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxy)}}
		defer client.CloseIdleConnections()
	}

	effective, err := r.fetch(ctx, client)
	if err != nil {
		status.Error = strPtr("effective lookup failed: " + err.Error())
		return status
	}

	status.EffectiveIP = optional(effective.IP)
	status.City = optional(effective.City)
	status.Region = optional(effective.Region)
	status.Country = optional(effective.Country)
	status.Org = optional(effective.Org)
	status.IsOriginIP = origin.IP != "" && origin.IP == effective.IP

	if expectProxy && status.IsOriginIP {
		status.Warning = strPtr(originIPWarning)
	}

	return status
}

// fetch walks the provider chain and returns the first successful answer.
// If every provider fails, the individual errors are joined with " / ".
func (r *Resolver) fetch(ctx context.Context, client *http.Client) (ipInfo, error) {
	errs := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		info, err := r.fetchProvider(ctx, client, p)
		if err == nil {
			return info, nil
		}
		r.logger.Debug("ip provider failed", "provider", p.Name, "error", err.Error())
		if r.onProviderError != nil {
			r.onProviderError(p.Name)
		}
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return ipInfo{}, errors.New(strings.Join(errs, " / "))
}

func (r *Resolver) fetchProvider(ctx context.Context, client *http.Client, p Provider) (ipInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return ipInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return ipInfo{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ipInfo{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBodySize))
	if err != nil {
		return ipInfo{}, fmt.Errorf("failed to read body: %w", err)
	}

	return normalise(p.Format, body)
}

// normalise maps a provider payload onto ipInfo.
func normalise(format string, body []byte) (ipInfo, error) {
	switch format {
	case FormatIPAPI:
		var raw struct {
			IP          string `json:"ip"`
			City        string `json:"city"`
			Region      string `json:"region"`
			Country     string `json:"country"`
			CountryName string `json:"country_name"`
			Org         string `json:"org"`
			Error       bool   `json:"error"`
			Reason      string `json:"reason"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return ipInfo{}, fmt.Errorf("invalid JSON: %w", err)
		}
		if raw.Error {
			return ipInfo{}, fmt.Errorf("provider error: %s", raw.Reason)
		}
		country := raw.CountryName
		if country == "" {
			country = raw.Country
		}
		return ipInfo{IP: raw.IP, City: raw.City, Region: raw.Region, Country: country, Org: raw.Org}, nil

	case FormatIPWhois:
		var raw struct {
			IP         string `json:"ip"`
			Success    *bool  `json:"success"`
			Message    string `json:"message"`
			City       string `json:"city"`
			Region     string `json:"region"`
			Country    string `json:"country"`
			Connection struct {
				Org string `json:"org"`
			} `json:"connection"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return ipInfo{}, fmt.Errorf("invalid JSON: %w", err)
		}
		if raw.Success != nil && !*raw.Success {
			return ipInfo{}, fmt.Errorf("provider error: %s", raw.Message)
		}
		return ipInfo{IP: raw.IP, City: raw.City, Region: raw.Region, Country: raw.Country, Org: raw.Connection.Org}, nil

	case FormatIPInfo, "":
		var raw struct {
			IP      string `json:"ip"`
			City    string `json:"city"`
			Region  string `json:"region"`
			Country string `json:"country"`
			Org     string `json:"org"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return ipInfo{}, fmt.Errorf("invalid JSON: %w", err)
		}
		return ipInfo{IP: raw.IP, City: raw.City, Region: raw.Region, Country: raw.Country, Org: raw.Org}, nil

	default:
		return ipInfo{}, fmt.Errorf("unknown provider format %q", format)
	}
}

// ValidateProviders checks names, URLs and formats of a provider list.
func ValidateProviders(providers []Provider) error {
	for i, p := range providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		u, err := url.Parse(p.URL)
		if err != nil {
			return fmt.Errorf("providers[%d] (%s): invalid url: %w", i, p.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("providers[%d] (%s): url scheme must be http or https, got %q", i, p.Name, u.Scheme)
		}
		switch p.Format {
		case "", FormatIPInfo, FormatIPAPI, FormatIPWhois:
		default:
			return fmt.Errorf("providers[%d] (%s): unknown format %q", i, p.Name, p.Format)
		}
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

// optional returns nil for the empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
