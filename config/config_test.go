package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(``))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Proxy != "" {
		t.Errorf("Proxy = %q, want empty", cfg.Proxy)
	}
	if cfg.LookupTimeout != 0 {
		t.Errorf("LookupTimeout = %v, want 0", cfg.LookupTimeout.Duration())
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("len(Providers) = %d, want 0", len(cfg.Providers))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Office uplink
port: 9090
status_url: http://badge.internal:8080
proxy: socks5h://127.0.0.1:1080
expect_proxy: true
lookup_timeout: 5s

providers:
  - name: primary
    url: https://ipinfo.io/json
    format: ipinfo
  - name: fallback
    url: http://ip-api.com/json/
    format: ipapi
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Office uplink" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Office uplink")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.StatusURL != "http://badge.internal:8080" {
		t.Errorf("StatusURL = %q", cfg.StatusURL)
	}
	if cfg.Proxy != "socks5h://127.0.0.1:1080" {
		t.Errorf("Proxy = %q", cfg.Proxy)
	}
	if !cfg.ExpectProxy {
		t.Error("ExpectProxy = false, want true")
	}
	if cfg.LookupTimeout.Duration() != 5*time.Second {
		t.Errorf("LookupTimeout = %v, want 5s", cfg.LookupTimeout.Duration())
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("len(Providers) = %d, want 2", len(cfg.Providers))
	}
	if cfg.Providers[1].Name != "fallback" || cfg.Providers[1].Format != "ipapi" {
		t.Errorf("Providers[1] = %+v", cfg.Providers[1])
	}
}

func TestParse_PollIntervalRejected(t *testing.T) {
	// the badge always refreshes every 15s
	_, err := Parse([]byte(`poll_interval: 30s`))
	if err == nil {
		t.Fatal("Parse() expected error for poll_interval, got nil")
	}
	if !strings.Contains(err.Error(), "poll_interval") {
		t.Errorf("error = %q, want it to mention poll_interval", err.Error())
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("NB_PROXY_HOST", "10.0.0.2")
	t.Setenv("NB_STATUS", "http://status.example.com")

	yaml := `
status_url: ${NB_STATUS}
proxy: socks5://${NB_PROXY_HOST}:1080
providers:
  - name: custom
    url: https://${NB_PROVIDER_HOST:-ipinfo.io}/json
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.StatusURL != "http://status.example.com" {
		t.Errorf("StatusURL = %q", cfg.StatusURL)
	}
	if cfg.Proxy != "socks5://10.0.0.2:1080" {
		t.Errorf("Proxy = %q", cfg.Proxy)
	}
	if cfg.Providers[0].URL != "https://ipinfo.io/json" {
		t.Errorf("Providers[0].URL = %q", cfg.Providers[0].URL)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	_, err := Parse([]byte(`proxy: ${NB_DEFINITELY_UNSET_PROXY}`))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "NB_DEFINITELY_UNSET_PROXY") {
		t.Errorf("error = %q, want it to name the variable", err.Error())
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "port too high",
			yaml:        `port: 70000`,
			wantErrLike: "port must be between 1 and 65535",
		},
		{
			name:        "negative port",
			yaml:        `port: -1`,
			wantErrLike: "port must be between 1 and 65535",
		},
		{
			name:        "status url without scheme",
			yaml:        `status_url: localhost:8080`,
			wantErrLike: "status_url",
		},
		{
			name:        "status url ftp",
			yaml:        `status_url: ftp://example.com`,
			wantErrLike: "must be http or https",
		},
		{
			name:        "unsupported proxy scheme",
			yaml:        `proxy: ftp://127.0.0.1:21`,
			wantErrLike: "proxy",
		},
		{
			name: "proxy with mullvad",
			yaml: `
proxy: socks5://127.0.0.1:1080
mullvad_socks5: true
`,
			wantErrLike: "mutually exclusive",
		},
		{
			name:        "lookup timeout too short",
			yaml:        `lookup_timeout: 100ms`,
			wantErrLike: "at least 1s",
		},
		{
			name:        "lookup timeout too long",
			yaml:        `lookup_timeout: 5m`,
			wantErrLike: "must not exceed 1m",
		},
		{
			name: "provider missing name",
			yaml: `
providers:
  - url: https://ipinfo.io/json
`,
			wantErrLike: "name is required",
		},
		{
			name: "provider missing url",
			yaml: `
providers:
  - name: primary
`,
			wantErrLike: "url is required",
		},
		{
			name: "provider duplicate name",
			yaml: `
providers:
  - name: primary
    url: https://ipinfo.io/json
  - name: primary
    url: https://ipwho.is/
`,
			wantErrLike: "duplicate provider name",
		},
		{
			name: "provider unknown format",
			yaml: `
providers:
  - name: primary
    url: https://ipinfo.io/json
    format: xml
`,
			wantErrLike: "unknown format",
		},
		{
			name: "provider bad scheme",
			yaml: `
providers:
  - name: primary
    url: ftp://ipinfo.io/json
`,
			wantErrLike: "must be http or https",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErrLike)
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("Parse() error = %q, want containing %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(`port: [not a number`))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %q, want YAML parse error", err.Error())
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`lookup_timeout: soon`))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want invalid duration", err.Error())
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1s", time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"1m", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg, err := Parse([]byte("lookup_timeout: " + tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.LookupTimeout.Duration() != tt.want {
				t.Errorf("LookupTimeout = %v, want %v", cfg.LookupTimeout.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netbadge.yaml")
	if err := os.WriteFile(path, []byte("title: From file\nport: 9191\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Title != "From file" || cfg.Port != 9191 {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_TitleEmpty(t *testing.T) {
	cfg, err := Parse([]byte(`port: 8081`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// empty title is valid (defaults to "NetBadge" at render time)
	if cfg.Title != "" {
		t.Errorf("Title = %q, want empty string", cfg.Title)
	}
}
