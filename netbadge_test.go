package netbadge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// providerServer answers as an ipinfo-style geolocation provider.
func providerServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// startNetBadge runs nb.Start in the background and stops it on cleanup.
func startNetBadge(t *testing.T, nb *NetBadge) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- nb.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start() returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Start() did not return after context cancellation")
		}
	})
}

type badgeRecorder struct {
	mu     sync.Mutex
	badges []Badge
}

func (r *badgeRecorder) record(b Badge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, b)
}

func (r *badgeRecorder) last() (Badge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.badges) == 0 {
		return Badge{}, false
	}
	return r.badges[len(r.badges)-1], true
}

func TestStart_RendersOwnStatus(t *testing.T) {
	provider := providerServer(t, `{"ip":"203.0.113.7","city":"Oslo","region":"Oslo","country":"NO"}`)
	port := freePort(t)

	rec := &badgeRecorder{}
	nb, err := New(
		WithPort(port),
		WithLogger(testLogger()),
		WithProviders(Provider{Name: "fake", URL: provider.URL}),
		WithBadgeCallback(rec.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nb.pollInterval = 50 * time.Millisecond

	startNetBadge(t, nb)

	waitFor(t, 5*time.Second, func() bool {
		_, ok := rec.last()
		return ok
	})

	b, _ := rec.last()
	if b.Class() != "network-badge" {
		t.Errorf("Class() = %q, want normal badge", b.Class())
	}
	if b.Text != "IP 203.0.113.7 | Oslo, Oslo, NO" {
		t.Errorf("Text = %q", b.Text)
	}

	// the same badge is served to the dashboard
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/badge", port))
	if err != nil {
		t.Fatalf("GET /api/badge error = %v", err)
	}
	defer resp.Body.Close()

	var served struct {
		ID    string `json:"id"`
		Class string `json:"class"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&served); err != nil {
		t.Fatalf("decode /api/badge: %v", err)
	}
	if served.ID != BadgeID || served.Text != b.Text {
		t.Errorf("served badge = %+v, want id %q text %q", served, BadgeID, b.Text)
	}
}

func TestStart_ExpectProxyWarns(t *testing.T) {
	provider := providerServer(t, `{"ip":"192.0.2.1","country":"GB"}`)
	port := freePort(t)

	rec := &badgeRecorder{}
	nb, err := New(
		WithPort(port),
		WithLogger(testLogger()),
		WithExpectProxy(true),
		WithProviders(Provider{Name: "fake", URL: provider.URL}),
		WithBadgeCallback(rec.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nb.pollInterval = 50 * time.Millisecond

	startNetBadge(t, nb)

	waitFor(t, 5*time.Second, func() bool {
		_, ok := rec.last()
		return ok
	})

	b, _ := rec.last()
	if b.Variant != VariantWarning {
		t.Errorf("Variant = %q, want warning", b.Variant)
	}
	if b.Text != "IP 192.0.2.1 | GB" {
		t.Errorf("Text = %q", b.Text)
	}
}

func TestStart_ProviderFailureRendersError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer provider.Close()
	port := freePort(t)

	rec := &badgeRecorder{}
	nb, err := New(
		WithPort(port),
		WithLogger(testLogger()),
		WithProviders(Provider{Name: "fake", URL: provider.URL}),
		WithBadgeCallback(rec.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nb.pollInterval = 50 * time.Millisecond

	startNetBadge(t, nb)

	waitFor(t, 5*time.Second, func() bool {
		_, ok := rec.last()
		return ok
	})

	b, _ := rec.last()
	if b.Variant != VariantError {
		t.Errorf("Variant = %q, want error", b.Variant)
	}
	if !strings.HasPrefix(b.Text, "Network: origin lookup failed") {
		t.Errorf("Text = %q, want origin lookup failure", b.Text)
	}
}

func TestStart_RemoteStatusURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatusPath {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"effective_ip":"198.51.100.4","city":"Leeds"}`)
	}))
	defer remote.Close()

	rec := &badgeRecorder{}
	nb, err := New(
		WithPort(freePort(t)),
		WithLogger(testLogger()),
		WithStatusURL(remote.URL),
		WithBadgeCallback(rec.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nb.pollInterval = 50 * time.Millisecond

	startNetBadge(t, nb)

	waitFor(t, 5*time.Second, func() bool {
		_, ok := rec.last()
		return ok
	})

	if b, _ := rec.last(); b.Text != "IP 198.51.100.4 | Leeds" {
		t.Errorf("Text = %q", b.Text)
	}
}

func TestStart_CallbackPanicRecovered(t *testing.T) {
	provider := providerServer(t, `{"ip":"203.0.113.7"}`)

	rec := &badgeRecorder{}
	nb, err := New(
		WithPort(freePort(t)),
		WithLogger(testLogger()),
		WithProviders(Provider{Name: "fake", URL: provider.URL}),
		WithBadgeCallback(func(Badge) { panic("callback exploded") }),
		WithBadgeCallback(rec.record),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nb.pollInterval = 50 * time.Millisecond

	startNetBadge(t, nb)

	// the second callback still runs after the first panics
	waitFor(t, 5*time.Second, func() bool {
		_, ok := rec.last()
		return ok
	})
}

func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	nb, err := New(WithPort(freePort(t)), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- nb.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()

	nb, err := New(WithPort(ln.Addr().(*net.TCPAddr).Port), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = nb.Start(context.Background())
	if err == nil {
		t.Fatal("Start() expected error for port in use, got nil")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("error = %v, want bind failure", err)
	}
}
