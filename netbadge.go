package netbadge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/netbadge/dashboard"
	"github.com/jpalmerr/netbadge/internal/metrics"
	"github.com/jpalmerr/netbadge/internal/netstatus"
	"github.com/jpalmerr/netbadge/internal/server"
	"github.com/jpalmerr/netbadge/internal/store"
	"github.com/jpalmerr/netbadge/internal/traffic"
)

const defaultPort = 8080

// NetBadge serves the network status API and keeps a badge rendered from it.
//
// Start launches the HTTP server, then an [Updater] that polls the status
// endpoint every [PollInterval] and renders into the dashboard's live
// badge. By default the updater polls this instance; [WithStatusURL] points
// it elsewhere.
//
//	nb, err := netbadge.New(netbadge.WithPort(8080), netbadge.WithExpectProxy(true))
//	if err != nil {
//	    slog.Error("failed to create netbadge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	nb.Start(ctx) // blocks until ctx is cancelled
type NetBadge struct {
	title          string
	port           int
	logger         *slog.Logger
	proxy          string
	expectProxy    bool
	statusURL      string
	providers      []Provider
	lookupTimeout  time.Duration
	badgeCallbacks []func(Badge)

	// pollInterval is PollInterval outside of tests.
	pollInterval time.Duration
}

// New creates a [NetBadge] with the given options.
//
// Defaults: port 8080, the ipinfo/ipapi/ipwhois provider chain, no proxy,
// and the updater polling this instance.
func New(opts ...Option) (*NetBadge, error) {
	cfg := &nbConfig{port: defaultPort}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	statusURL := cfg.statusURL
	if statusURL == "" {
		statusURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.port)
	}

	return &NetBadge{
		title:          cfg.title,
		port:           cfg.port,
		logger:         logger,
		proxy:          cfg.proxy,
		expectProxy:    cfg.expectProxy,
		statusURL:      statusURL,
		providers:      cfg.providers,
		lookupTimeout:  cfg.lookupTimeout,
		badgeCallbacks: cfg.badgeCallbacks,
		pollInterval:   PollInterval,
	}, nil
}

// Port returns the configured HTTP port.
func (nb *NetBadge) Port() int {
	return nb.port
}

// StatusURL returns the base URL the badge polls.
func (nb *NetBadge) StatusURL() string {
	return nb.statusURL
}

// Title returns the configured dashboard title, which may be empty.
func (nb *NetBadge) Title() string {
	return nb.title
}

// Proxy returns the default lookup proxy, or "" for a direct lookup.
func (nb *NetBadge) Proxy() string {
	return nb.proxy
}

// ExpectProxy reports whether lookups warn while on the origin IP.
func (nb *NetBadge) ExpectProxy() bool {
	return nb.expectProxy
}

// Start serves the API and dashboard and keeps the badge refreshed.
//
// Start blocks until ctx is cancelled. It returns nil on graceful shutdown
// and an error if the HTTP server cannot start.
func (nb *NetBadge) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	nb.logger.Info("netbadge starting",
		"port", nb.port,
		"status_url", nb.statusURL,
		"poll_interval", nb.pollInterval.String(),
		"proxy_configured", nb.proxy != "",
		"expect_proxy", nb.expectProxy,
	)

	m := metrics.New()
	badgeStore := store.NewMemoryStore()
	resolver := netstatus.NewResolver(toNetstatusProviders(nb.providers), nb.lookupTimeout, nb.logger, m.ObserveProviderError)

	httpServer := server.NewServer(badgeStore, resolver, traffic.NewSampler(nil), m, server.Options{
		Port:        nb.port,
		Title:       nb.title,
		Assets:      dashboard.Assets,
		Proxy:       nb.proxy,
		ExpectProxy: nb.expectProxy,
	}, nb.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	nb.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", nb.port))

	sink := SinkFunc(func(b Badge) {
		badgeStore.Update(toStoreBadge(b))
		m.ObserveRender(b.Variant.String())

		if b.Variant == VariantError {
			nb.logger.Warn("badge rendered", "variant", b.Variant.String(), "text", b.Text)
		} else {
			nb.logger.Debug("badge rendered", "variant", b.Variant.String(), "text", b.Text)
		}

		for _, cb := range nb.badgeCallbacks {
			invokeCallbackSafe(cb, b, nb.logger)
		}
	})

	// a lookup walks two provider chains, so allow it the whole cycle
	updater, err := NewUpdater(nb.statusURL, sink,
		WithUpdaterLogger(nb.logger),
		WithTimeout(PollInterval),
	)
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	handle := watch(ctx, updater, nb.pollInterval, m.ObserveSkip)

	<-ctx.Done()
	handle.Stop()
	updater.Close()
	nb.logger.Info("netbadge stopped")
	return nil
}

// toStoreBadge converts a rendered badge to its storage form.
func toStoreBadge(b Badge) store.Badge {
	return store.Badge{
		ID:         BadgeID,
		Variant:    b.Variant.String(),
		Class:      b.Class(),
		Text:       b.Text,
		RenderedAt: time.Now(),
	}
}

// invokeCallbackSafe calls a badge callback with panic recovery.
func invokeCallbackSafe(cb func(Badge), b Badge, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("badge callback panicked",
				"panic", r,
				"variant", b.Variant.String(),
			)
		}
	}()
	cb(b)
}
