package main

import (
	"fmt"

	"github.com/jpalmerr/netbadge/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a NetBadge configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  netbadge validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	statusURL := cfg.StatusURL
	if statusURL == "" {
		statusURL = fmt.Sprintf("http://127.0.0.1:%d (self)", cfg.Port)
	}

	proxy := cfg.Proxy
	switch {
	case cfg.MullvadSOCKS5:
		proxy = "mullvad"
	case proxy == "":
		proxy = "none"
	}

	providers := len(cfg.Providers)
	providerNote := ""
	if providers == 0 {
		providers = 3
		providerNote = " (default)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:         %d\n", cfg.Port)
	fmt.Fprintf(out, "  Status URL:   %s\n", statusURL)
	fmt.Fprintf(out, "  Proxy:        %s\n", proxy)
	fmt.Fprintf(out, "  Expect proxy: %t\n", cfg.ExpectProxy || cfg.MullvadSOCKS5)
	fmt.Fprintf(out, "  Providers:    %d%s\n", providers, providerNote)

	return nil
}
