package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "porter.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	t.Setenv("GH_TOKEN", "secret-value")
	path := writeTempConfig(t, `
[servers.weather]
slug = "wx"
transport = "stdio"
command = "weather-mcp"

[servers.weather.env]
TOKEN = "$GH_TOKEN"

[cli.github]
slug = "gh"
transport = "cli"
command = "gh"
profile = "gh"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Servers["weather"].Env["TOKEN"] != "secret-value" {
		t.Fatalf("env substitution failed: got %q", cfg.Servers["weather"].Env["TOKEN"])
	}
	if cfg.CLI["github"].Slug != "gh" {
		t.Fatalf("cli entry not parsed: %+v", cfg.CLI["github"])
	}
}

func TestLoad_BareEnvValueRejected(t *testing.T) {
	path := writeTempConfig(t, `
[servers.weather]
slug = "wx"
transport = "stdio"
command = "weather-mcp"

[servers.weather.env]
TOKEN = "literal-secret"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected ConfigInvalid for bare env value")
	}
}

func TestLoad_DuplicateSlugRejected(t *testing.T) {
	path := writeTempConfig(t, `
[servers.a]
slug = "dup"
transport = "stdio"
command = "one"

[servers.b]
slug = "dup"
transport = "stdio"
command = "two"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected DuplicateSlug error")
	}
}

func TestLoad_SlugWithSeparatorRejected(t *testing.T) {
	path := writeTempConfig(t, `
[servers.a]
slug = "has__sep"
transport = "stdio"
command = "one"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected ConfigInvalid for slug containing __")
	}
}

func TestDiscoverPath_ExplicitFlagWins(t *testing.T) {
	got, err := DiscoverPath("/tmp/explicit.toml")
	if err != nil {
		t.Fatalf("DiscoverPath() error: %v", err)
	}
	if got != "/tmp/explicit.toml" {
		t.Fatalf("got %q, want explicit path", got)
	}
}
