package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandRejectsPositionalArgs(t *testing.T) {
	cmd := newCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing", "config.toml"), "extra"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected positional argument to be rejected")
	}
	if !strings.Contains(err.Error(), "unknown command") && !strings.Contains(err.Error(), "accepts 0 arg") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := newCommand()
	for _, name := range []string{"config", "log-level", "dev"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("expected flag %q", name)
		}
	}
}
