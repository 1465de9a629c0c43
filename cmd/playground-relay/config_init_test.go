package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/playground-relay/internal/config"
)

const (
	initConfigOutputFlag  = "output"
	initConfigForceFlag   = "force"
	runConfigInitErrFmt   = "runConfigInit failed: %v"
	existingConfigContent = "existing: content"
)

// newMockInitCmd creates a cobra.Command with the flags of the init command.
func newMockInitCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "init"}
	cmd.Flags().StringP(initConfigOutputFlag, "o", "", "output path")
	cmd.Flags().Bool(initConfigForceFlag, false, "overwrite existing")
	captureOutput(cmd)
	return cmd
}

func TestRunConfigInitDefaultPath(t *testing.T) {
	// Note: Cannot use t.Parallel() (modifies HOME env var)
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := runConfigInit(newMockInitCmd(), nil); err != nil {
		t.Fatalf(runConfigInitErrFmt, err)
	}

	configPath := filepath.Join(home, ".config", appName, configFileName)
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", configPath, err)
	}

	content := string(data)
	for _, section := range []string{"server:", "providers:", "transport:", "health:", "logging:"} {
		if !strings.Contains(content, section) {
			t.Errorf("Expected config to contain %q section", section)
		}
	}
}

func TestRunConfigInitWritesLoadableConfig(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"relay.yaml", "relay.toml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "nested", name)
			cmd := newMockInitCmd()
			require.NoError(t, cmd.Flags().Set(initConfigOutputFlag, path))
			require.NoError(t, runConfigInit(cmd, nil))

			cfg, err := config.LoadAndValidate(path)
			require.NoError(t, err)
			assert.Equal(t, config.DefaultListen, cfg.Server.Listen)
			assert.True(t, cfg.Providers.Gemini.IsEnabled())
			assert.True(t, cfg.Transport.IsHTTP2Enabled())
			assert.Equal(t, config.DefaultAnthropicMaxTokens, cfg.Providers.Anthropic.GetDefaultMaxTokens())
		})
	}
}

func TestRunConfigInitUnsupportedExtension(t *testing.T) {
	t.Parallel()

	cmd := newMockInitCmd()
	require.NoError(t, cmd.Flags().Set(initConfigOutputFlag, filepath.Join(t.TempDir(), "relay.json")))

	err := runConfigInit(cmd, nil)
	var formatErr *config.UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestRunConfigInitExistingFileWithoutForce(t *testing.T) {
	t.Parallel()

	configPath := writeConfigFile(t, t.TempDir(), existingConfigContent)
	cmd := newMockInitCmd()
	require.NoError(t, cmd.Flags().Set(initConfigOutputFlag, configPath))

	err := runConfigInit(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}

	data, readErr := os.ReadFile(filepath.Clean(configPath))
	require.NoError(t, readErr)
	assert.Equal(t, existingConfigContent, string(data))
}

func TestRunConfigInitExistingFileWithForce(t *testing.T) {
	t.Parallel()

	configPath := writeConfigFile(t, t.TempDir(), existingConfigContent)
	cmd := newMockInitCmd()
	require.NoError(t, cmd.Flags().Set(initConfigOutputFlag, configPath))
	require.NoError(t, cmd.Flags().Set(initConfigForceFlag, "true"))

	if err := runConfigInit(cmd, nil); err != nil {
		t.Fatalf(runConfigInitErrFmt, err)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	require.NoError(t, err)
	assert.NotEqual(t, existingConfigContent, string(data))
}
