// Package config provides YAML configuration parsing for netbadge.
//
// This package enables running netbadge as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Office uplink
//	port: 8080
//	proxy: ${NETBADGE_PROXY:-socks5h://127.0.0.1:1080}
//	expect_proxy: true
//	lookup_timeout: 5s
//
//	providers:
//	  - name: ipinfo
//	    url: https://ipinfo.io/json
//	    format: ipinfo
//
// The poll interval is fixed at 15s and has no configuration key.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/netbadge/internal/netstatus"
)

// Config is the root configuration structure for netbadge.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "NetBadge" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// StatusURL is the base URL of the netbadge server the badge polls.
	// Empty means this instance. Supports ${VAR} substitution.
	StatusURL string `yaml:"status_url"`

	// Proxy is the default proxy for effective IP lookups.
	// Supports ${VAR} and ${VAR:-default} substitution.
	Proxy string `yaml:"proxy"`

	// ExpectProxy warns while traffic leaves on the origin IP.
	ExpectProxy bool `yaml:"expect_proxy"`

	// MullvadSOCKS5 routes lookups through the local Mullvad SOCKS5 proxy
	// and implies expect_proxy. Mutually exclusive with proxy.
	MullvadSOCKS5 bool `yaml:"mullvad_socks5"`

	// LookupTimeout is the per-provider request timeout. Defaults to 8s.
	LookupTimeout Duration `yaml:"lookup_timeout"`

	// Providers replaces the default ipinfo/ipapi/ipwhois chain.
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig defines one IP geolocation provider.
type ProviderConfig struct {
	// Name identifies the provider in errors and metrics.
	Name string `yaml:"name"`

	// URL is the provider's JSON endpoint. Supports ${VAR} substitution.
	URL string `yaml:"url"`

	// Format is "ipinfo" (default), "ipapi" or "ipwhois".
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Unknown keys are rejected. Environment variables are expanded in
// status_url, proxy and provider URLs. Port defaults to 8080.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.StatusURL != "" {
		expanded, err := expandEnvVars(c.StatusURL)
		if err != nil {
			return fmt.Errorf("status_url: %w", err)
		}
		c.StatusURL = expanded
		if err := validateHTTPURL(c.StatusURL); err != nil {
			return fmt.Errorf("status_url: %w", err)
		}
	}

	if c.Proxy != "" {
		expanded, err := expandEnvVars(c.Proxy)
		if err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
		c.Proxy = expanded
		if _, err := netstatus.ParseProxy(c.Proxy); err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
	}

	if c.MullvadSOCKS5 && c.Proxy != "" {
		return errors.New("proxy and mullvad_socks5 are mutually exclusive")
	}

	if c.LookupTimeout != 0 {
		if c.LookupTimeout.Duration() < time.Second {
			return fmt.Errorf("lookup_timeout must be at least 1s if specified, got %s", c.LookupTimeout.Duration())
		}
		if c.LookupTimeout.Duration() > time.Minute {
			return fmt.Errorf("lookup_timeout must not exceed 1m, got %s", c.LookupTimeout.Duration())
		}
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]

		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.URL == "" {
			return fmt.Errorf("providers[%d] (%s): url is required", i, p.Name)
		}
		expanded, err := expandEnvVars(p.URL)
		if err != nil {
			return fmt.Errorf("providers[%d] (%s): url: %w", i, p.Name, err)
		}
		p.URL = expanded
	}

	if err := netstatus.ValidateProviders(c.providers()); err != nil {
		return err
	}

	return nil
}

func (c *Config) providers() []netstatus.Provider {
	out := make([]netstatus.Provider, len(c.Providers))
	for i, p := range c.Providers {
		out[i] = netstatus.Provider{Name: p.Name, URL: p.URL, Format: p.Format}
	}
	return out
}

// validateHTTPURL checks for an absolute http(s) URL with a host.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}
