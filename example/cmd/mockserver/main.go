// Standalone mock geolocation provider for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/netbadge serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock geolocation provider starting on :9999")
	fmt.Println("Direct requests report the origin IP; proxied requests report the tunnel IP")
	fmt.Println("The tunnel drops and returns every 20-60s")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu           sync.Mutex
		up           = true
		nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
	)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		if time.Now().After(nextChangeAt) {
			up = !up
			nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("tunnel state change", "up", up)
		}
		tunnelUp := up
		mu.Unlock()

		resp := map[string]string{"ip": "192.0.2.10", "city": "Leeds", "region": "England", "country": "GB"}
		if r.URL.IsAbs() && tunnelUp {
			resp = map[string]string{"ip": "203.0.113.77", "city": "Amsterdam", "region": "North Holland", "country": "NL"}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	if err := http.ListenAndServe(":9999", handler); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
