package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
port: 8080
proxy: socks5://127.0.0.1:1080
expect_proxy: true
providers:
  - name: primary
    url: https://ipinfo.io/json
`)

	output, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Port:         8080",
		"Status URL:   http://127.0.0.1:8080 (self)",
		"Proxy:        socks5://127.0.0.1:1080",
		"Expect proxy: true",
		"Providers:    1",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_MullvadDefaults(t *testing.T) {
	configPath := writeConfig(t, `mullvad_socks5: true`)

	output, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	for _, phrase := range []string{"Proxy:        mullvad", "Expect proxy: true", "Providers:    3 (default)"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
providers:
  - name: ""
    url: https://example.com
`)

	_, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should mention 'name is required', got: %v", err)
	}
}

func TestRunValidate_PollIntervalRejected(t *testing.T) {
	configPath := writeConfig(t, `poll_interval: 5s`)

	_, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for poll_interval, got nil")
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestVersion(t *testing.T) {
	output, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(output, "netbadge dev") {
		t.Errorf("output = %q, want prefix %q", output, "netbadge dev")
	}
}

func TestRunWatch_InvalidURL(t *testing.T) {
	_, err := executeCmd(t, "watch", "--url", "not a url")
	if err == nil {
		t.Fatal("watch command expected error for invalid url, got nil")
	}
	if !strings.Contains(err.Error(), "invalid --url") {
		t.Errorf("error = %v, want invalid --url", err)
	}
}
