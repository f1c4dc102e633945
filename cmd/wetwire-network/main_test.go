package main

import (
	"bytes"
	"strings"
	"testing"
)

// testEnv is the sample environment shipped with the repository.
const testEnv = "../../examples/network/environment.yaml"

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	want := []string{"build", "diff", "graph", "list", "validate", "version", "watch"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %q subcommand", name)
		}
	}

	for _, flag := range []string{"log-level", "log-format"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--log-level", "loud", "version"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "wetwire-network ") {
		t.Errorf("output = %q, want 'wetwire-network <version>'", out.String())
	}
}

func TestGetVersion(t *testing.T) {
	version := getVersion()

	if version == "" {
		t.Error("getVersion() returned empty string")
	}

	// Tests run from source, so the version is "dev" unless installed.
	if version != "dev" && !strings.HasPrefix(version, "v") {
		t.Errorf("getVersion() = %q, want 'dev' or 'vX.Y.Z'", version)
	}
}
