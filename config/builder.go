package config

import (
	"github.com/jpalmerr/netbadge"
	"github.com/jpalmerr/netbadge/internal/netstatus"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options do not include a logger; callers append
// [netbadge.WithLogger] themselves.
func BuildOptions(cfg *Config) []netbadge.Option {
	opts := []netbadge.Option{
		netbadge.WithPort(cfg.Port),
	}

	if cfg.Title != "" {
		opts = append(opts, netbadge.WithTitle(cfg.Title))
	}

	if cfg.StatusURL != "" {
		opts = append(opts, netbadge.WithStatusURL(cfg.StatusURL))
	}

	switch {
	case cfg.MullvadSOCKS5:
		opts = append(opts,
			netbadge.WithProxy(netstatus.MullvadProxy),
			netbadge.WithExpectProxy(true),
		)
	case cfg.Proxy != "":
		opts = append(opts, netbadge.WithProxy(cfg.Proxy))
	}

	if cfg.ExpectProxy {
		opts = append(opts, netbadge.WithExpectProxy(true))
	}

	if cfg.LookupTimeout != 0 {
		opts = append(opts, netbadge.WithLookupTimeout(cfg.LookupTimeout.Duration()))
	}

	if len(cfg.Providers) > 0 {
		providers := make([]netbadge.Provider, len(cfg.Providers))
		for i, p := range cfg.Providers {
			providers[i] = netbadge.Provider{Name: p.Name, URL: p.URL, Format: p.Format}
		}
		opts = append(opts, netbadge.WithProviders(providers...))
	}

	return opts
}
