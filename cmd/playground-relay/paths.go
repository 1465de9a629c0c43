package main

import (
	"os"
	"path/filepath"
)

// configPath returns --config when set, otherwise the first default location
// holding a config file.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigInWithHome(wd, home)
}

// findConfigIn looks for the default config file in dir only.
func findConfigIn(dir string) string {
	return findConfigInWithHome(dir, "")
}

// findConfigInWithHome checks dir, then ~/.config/playground-relay/. It
// returns the bare default name when neither has one, so loading reports a
// readable error.
func findConfigInWithHome(dir, home string) string {
	candidates := []string{filepath.Join(dir, defaultConfigFile)}
	if home != "" {
		candidates = append(candidates, defaultHomeConfig(home))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return defaultConfigFile
}

func defaultHomeConfig(home string) string {
	return filepath.Join(home, ".config", appName, defaultConfigFile)
}
