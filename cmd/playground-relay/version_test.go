package main

import (
	"strings"
	"testing"

	"github.com/omarluq/playground-relay/internal/version"
)

func TestVersionCommand(t *testing.T) {
	out := captureOutput(versionCmd)
	versionCmd.Run(versionCmd, nil)

	got := out.String()
	if !strings.HasPrefix(got, appName+" ") {
		t.Errorf("version output = %q, want %q prefix", got, appName)
	}
	if !strings.Contains(got, version.Version) {
		t.Errorf("version output = %q, want it to contain %q", got, version.Version)
	}
}
