package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jpalmerr/netbadge/internal/metrics"
	"github.com/jpalmerr/netbadge/internal/netstatus"
	"github.com/jpalmerr/netbadge/internal/store"
	"github.com/jpalmerr/netbadge/internal/traffic"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxLookupBody caps POST bodies on the status endpoint.
	maxLookupBody = 16 << 10

	defaultTitle     = "NetBadge"
	titlePlaceholder = "{{.Title}}"
)

// StatusLookup resolves the current network status.
type StatusLookup interface {
	Lookup(ctx context.Context, proxy *url.URL, expectProxy bool) netstatus.Status
}

// TrafficSampler produces traffic snapshots.
type TrafficSampler interface {
	Sample() traffic.Status
}

// Options configures a [Server].
type Options struct {
	// Port is the TCP port to listen on. Zero lets the OS choose.
	Port int

	// Title is the dashboard title. Defaults to "NetBadge".
	Title string

	// Assets holds the dashboard page at assets/index.html. May be nil.
	Assets fs.FS

	// Proxy is the proxy URL used when a request does not name one.
	Proxy string

	// ExpectProxy makes every lookup warn when traffic leaves on the
	// origin IP.
	ExpectProxy bool
}

// Server handles HTTP requests for the network status API and dashboard.
//
// Routes:
//   - GET|POST /api/network/status: live network status lookup
//   - GET /api/network/traffic: traffic counters and rates
//   - GET /api/badge: latest rendered badge
//   - GET /api/badge/sse: Server-Sent Events stream of badge renders
//   - GET /api/badge/ws: WebSocket stream of badge renders
//   - GET /metrics: Prometheus exposition
//   - GET /: embedded dashboard
type Server struct {
	store   store.Store
	lookup  StatusLookup
	sampler TrafficSampler
	metrics *metrics.Metrics
	opts    Options
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server]. It does not listen until
// [Server.Start] is called.
func NewServer(st store.Store, lookup StatusLookup, sampler TrafficSampler, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   st,
		lookup:  lookup,
		sampler: sampler,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/network/status", s.handleNetworkStatus)
	r.Post("/api/network/status", s.handleNetworkStatus)
	r.Get("/api/network/traffic", s.handleTraffic)
	r.Get("/api/badge", s.handleBadge)
	r.Get("/api/badge/sse", s.handleSSE)
	r.Get("/api/badge/ws", s.handleWS)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/", s.handleDashboard)

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns after the listener is bound. The server
// runs until ctx is cancelled, then shuts down with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.opts.Port, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// lookupParams are the optional parameters of a status lookup.
type lookupParams struct {
	Proxy         string    `json:"proxy"`
	ExpectProxy   looseBool `json:"expect_proxy"`
	MullvadSOCKS5 looseBool `json:"mullvad_socks5"`
}

// looseBool decodes any JSON value by truthiness. Strings follow the same
// rules as query parameters.
type looseBool bool

// UnmarshalJSON implements json.Unmarshaler for looseBool.
func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = looseBool(x)
	case float64:
		*b = x != 0
	case string:
		*b = looseBool(queryBool(strings.TrimSpace(x)))
	case []any:
		*b = len(x) > 0
	case map[string]any:
		*b = len(x) > 0
	}
	return nil
}

// handleNetworkStatus performs a live lookup and returns it as JSON.
//
// GET reads parameters from the query string; POST from a JSON body. A
// malformed POST body is treated as empty. Boolean parameters accept any
// JSON value and are read by truthiness.
func (s *Server) handleNetworkStatus(w http.ResponseWriter, r *http.Request) {
	var params lookupParams
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLookupBody)).Decode(&params)
	} else {
		q := r.URL.Query()
		params.Proxy = q.Get("proxy")
		params.ExpectProxy = looseBool(queryBool(q.Get("expect_proxy")))
		params.MullvadSOCKS5 = looseBool(queryBool(q.Get("mullvad_socks5")))
	}

	rawProxy := strings.TrimSpace(params.Proxy)
	if rawProxy == "" {
		rawProxy = s.opts.Proxy
	}
	expect := bool(params.ExpectProxy) || s.opts.ExpectProxy
	if params.MullvadSOCKS5 {
		rawProxy = netstatus.MullvadProxy
		expect = true
	}

	proxy, err := netstatus.ParseProxy(rawProxy)
	if err != nil {
		s.metrics.ObserveLookup(metrics.OutcomeError)
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	status := s.lookup.Lookup(r.Context(), proxy, expect)

	switch {
	case status.Error != nil:
		s.metrics.ObserveLookup(metrics.OutcomeError)
		s.logger.Warn("network status lookup failed", "error", *status.Error)
	case status.Warning != nil:
		s.metrics.ObserveLookup(metrics.OutcomeWarning)
	default:
		s.metrics.ObserveLookup(metrics.OutcomeOK)
	}

	s.writeJSON(w, http.StatusOK, status)
}

// queryBool reads a boolean query parameter. Unparseable non-empty values
// count as true.
func queryBool(v string) bool {
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sampler.Sample())
}

// handleBadge returns the latest rendered badge.
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	b, ok := s.store.Latest()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "no badge rendered yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.opts.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.opts.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.opts.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleSSE streams badge renders via Server-Sent Events.
//
// Writes carry a deadline so that a slow or vanished client cannot block
// the handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if b, ok := s.store.Latest(); ok {
		data, err := json.Marshal(b)
		if err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(b)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
