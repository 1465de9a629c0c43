package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/health"
	"github.com/omarluq/playground-relay/internal/providers"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default config file",
	Long: `Generate a default configuration at ~/.config/playground-relay/config.yaml.
A .toml output path writes TOML instead.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/playground-relay/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		output = defaultHomeConfig(home)
	}

	format, err := config.DetectFormat(output)
	if err != nil {
		return err
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}

	data, err := config.Marshal(defaultConfig(), format)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Config file created at %s\n", output)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the config file to enable providers and adjust limits")
	fmt.Fprintln(out, "  2. Validate with: "+appName+" config validate")
	fmt.Fprintln(out, "  3. Start the relay: "+appName+" serve")

	return nil
}

// defaultConfig is the config written by "config init". Every default is
// spelled out so the file documents the available settings.
func defaultConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Listen:              config.DefaultListen,
			MaxBodyBytes:        config.DefaultMaxBodyBytes,
			ReadHeaderTimeoutMS: config.DefaultReadHeaderTimeoutMS,
			ShutdownTimeoutMS:   config.DefaultShutdownTimeoutMS,
			RateLimit: config.RateLimitConfig{
				RequestsPerMinute: config.DefaultRateLimitRPM,
				Burst:             config.DefaultRateLimitRPM,
			},
		},
		Providers: config.ProvidersConfig{
			Anthropic: config.ProviderConfig{
				Enabled:              lo.ToPtr(true),
				BaseURL:              providers.DefaultAnthropicBaseURL,
				AnthropicVersion:     providers.DefaultAnthropicVersion,
				DefaultMaxTokens:     config.DefaultAnthropicMaxTokens,
				ThinkingBudgetTokens: config.DefaultThinkingBudgetTokens,
			},
			Gemini: config.ProviderConfig{
				Enabled: lo.ToPtr(true),
				BaseURL: providers.DefaultGeminiBaseURL,
			},
			OpenAICompatible: config.ProviderConfig{
				Enabled: lo.ToPtr(true),
				BaseURL: providers.DefaultOpenAICompatibleBaseURL,
				Title:   config.DefaultPlaygroundTitle,
			},
		},
		Transport: config.TransportConfig{
			EnableHTTP2:        lo.ToPtr(true),
			FirstByteTimeoutMS: config.DefaultFirstByteTimeoutMS,
			TotalTimeoutMS:     config.DefaultTotalTimeoutMS,
			IdleTimeoutMS:      config.DefaultIdleTimeoutMS,
			MaxFrameBytes:      config.DefaultMaxFrameBytes,
			ErrorBodyLimit:     config.DefaultErrorBodyLimit,
		},
		Health: health.Config{
			CircuitBreaker: health.CircuitBreakerConfig{
				Enabled:          lo.ToPtr(true),
				FailureThreshold: health.DefaultFailureThreshold,
				OpenDurationMS:   health.DefaultOpenDurationMS,
				HalfOpenProbes:   health.DefaultHalfOpenProbes,
			},
		},
		Logging: config.LoggingConfig{
			Level:  config.LevelInfo,
			Format: "console",
			Output: "stderr",
			DebugOptions: config.DebugOptions{
				MaxBodyLogSize: config.DefaultMaxBodyLogSize,
			},
		},
	}
}
