package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/playground-relay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server.
Checks syntax, listen address, provider base URLs, timeouts and breaker settings.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	path := configPath()
	out := cmd.OutOrStdout()

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		fmt.Fprintf(out, "✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Fprintf(out, "✓ %s is valid\n", path)
	for _, line := range enabledProviderLines(cfg) {
		fmt.Fprintf(out, "  %s\n", line)
	}

	return nil
}

// enabledProviderLines lists the providers the config would serve.
func enabledProviderLines(cfg *config.Config) []string {
	sections := []struct {
		p    *config.ProviderConfig
		kind string
	}{
		{kind: "anthropic", p: &cfg.Providers.Anthropic},
		{kind: "gemini", p: &cfg.Providers.Gemini},
		{kind: "openai_compatible", p: &cfg.Providers.OpenAICompatible},
	}

	lines := make([]string, 0, len(sections))
	for _, s := range sections {
		if !s.p.IsEnabled() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s -> %s", s.kind, s.p.GetBaseURLOption().OrElse("default")))
	}
	return lines
}
