package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	mockOriginIP = "192.0.2.10"
	mockTunnelIP = "203.0.113.77"
)

// mockTunnel flips between up and down every 20-60 seconds.
type mockTunnel struct {
	mu           sync.Mutex
	up           bool
	nextChangeAt time.Time
}

func (m *mockTunnel) isUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Now().After(m.nextChangeAt) {
		if !m.nextChangeAt.IsZero() {
			m.up = !m.up
			slog.Info("tunnel state change", "up", m.up)
		}
		m.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
	}
	return m.up
}

// StartMockProvider runs an ipinfo-style geolocation provider that doubles
// as an HTTP forward proxy. Direct requests see the origin IP; requests
// sent through it as a proxy see the tunnel IP while the tunnel is up.
// Call this in a goroutine before starting NetBadge.
func StartMockProvider(addr string) {
	tunnel := &mockTunnel{up: true}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		// proxied requests arrive in absolute form
		proxied := r.URL.IsAbs()

		resp := map[string]string{
			"ip":      mockOriginIP,
			"city":    "Leeds",
			"region":  "England",
			"country": "GB",
		}
		if proxied && tunnel.isUp() {
			resp = map[string]string{
				"ip":      mockTunnelIP,
				"city":    "Amsterdam",
				"region":  "North Holland",
				"country": "NL",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("mock provider error", "error", err)
	}
}
