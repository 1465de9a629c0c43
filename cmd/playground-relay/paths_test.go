package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfigIn(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeConfigFile(t, tmpDir, "server:\n  listen: 127.0.0.1:8787\n")

	found := findConfigIn(tmpDir)
	if found != filepath.Join(tmpDir, defaultConfigFile) {
		t.Errorf("Expected config in tmpDir, got %q", found)
	}
}

func TestFindConfigInNotFound(t *testing.T) {
	t.Parallel()

	found := findConfigIn(t.TempDir())
	if found != defaultConfigFile {
		t.Errorf("Expected %q default, got %q", defaultConfigFile, found)
	}
}

func TestFindConfigInHomeDir(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	workDir := t.TempDir()

	configDir := filepath.Join(home, ".config", appName)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatal(err)
	}
	configPath := writeConfigFile(t, configDir, "server:\n  listen: 127.0.0.1:8787\n")

	found := findConfigInWithHome(workDir, home)
	if found != configPath {
		t.Errorf("Expected %q, got %q", configPath, found)
	}
}

func TestFindConfigInPrefersWorkingDir(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	workDir := t.TempDir()
	configDir := filepath.Join(home, ".config", appName)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatal(err)
	}
	writeConfigFile(t, configDir, "{}\n")
	local := writeConfigFile(t, workDir, "{}\n")

	if found := findConfigInWithHome(workDir, home); found != local {
		t.Errorf("Expected %q, got %q", local, found)
	}
}

func TestConfigPathUsesFlag(t *testing.T) {
	useConfigFile(t, "/etc/relay.toml")

	if got := configPath(); got != "/etc/relay.toml" {
		t.Errorf("configPath() = %q, want flag value", got)
	}
}
