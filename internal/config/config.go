// Package config loads and validates Porter's TOML configuration:
// server and CLI provider entries, environment variable substitution,
// and the ambient logging table.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/nextlevelbuilder/porter/internal/namespace"
	"github.com/nextlevelbuilder/porter/internal/portererr"
)

// ServerEntry is one [servers.<name>] table: a remote MCP backend
// reached over stdio or streamable HTTP.
type ServerEntry struct {
	Slug      string            `toml:"slug"`
	Transport string            `toml:"transport"`
	Enabled   *bool             `toml:"enabled"`
	Command   string            `toml:"command"`
	Args      []string          `toml:"args"`
	Env       map[string]string `toml:"env"`
	Cwd       string            `toml:"cwd"`
	URL       string            `toml:"url"`
}

// IsEnabled reports whether the entry should be spawned; absent
// `enabled` defaults to true.
func (e ServerEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// CLIEntry is one [cli.<name>] table: a local CLI program turned into
// one or more tools by the CLI harness.
type CLIEntry struct {
	Slug              string                     `toml:"slug"`
	Transport         string                     `toml:"transport"`
	Command           string                     `toml:"command"`
	Enabled           *bool                      `toml:"enabled"`
	Profile           string                     `toml:"profile"`
	Args              []string                   `toml:"args"`
	Env               map[string]string          `toml:"env"`
	Cwd               string                     `toml:"cwd"`
	Allow             []string                   `toml:"allow"`
	Deny              []string                   `toml:"deny"`
	WriteAccess       map[string]bool            `toml:"write_access"`
	TimeoutSecs       *int                       `toml:"timeout_secs"`
	InjectFlags       []string                   `toml:"inject_flags"`
	ExpandSubcommands *bool                      `toml:"expand_subcommands"`
	SchemaOverride    map[string]interface{}     `toml:"schema_override"`
	HelpDepth         *int                       `toml:"help_depth"`
}

// IsEnabled reports whether the entry should be spawned; absent
// `enabled` defaults to true.
func (e CLIEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// TimeoutSecsOrDefault returns the configured timeout, defaulting to 30.
func (e CLIEntry) TimeoutSecsOrDefault() int {
	if e.TimeoutSecs == nil {
		return 30
	}
	return *e.TimeoutSecs
}

// HelpDepthOrDefault returns the configured discovery depth, defaulting
// to 2 and capped at 5.
func (e CLIEntry) HelpDepthOrDefault() int {
	depth := 2
	if e.HelpDepth != nil {
		depth = *e.HelpDepth
	}
	if depth > 5 {
		depth = 5
	}
	if depth < 0 {
		depth = 0
	}
	return depth
}

// LoggingConfig is the ambient [logging] table.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Config is the fully parsed and validated porter.toml document.
type Config struct {
	Servers map[string]ServerEntry `toml:"servers"`
	CLI     map[string]CLIEntry    `toml:"cli"`
	Logging LoggingConfig          `toml:"logging"`
}

// Load reads and parses the TOML document at path, substitutes
// environment variables into every env table, and validates slugs and
// uniqueness. It does not spawn providers.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &portererr.ConfigInvalidError{Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, &portererr.ConfigInvalidError{Reason: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	if err := substituteEnv(cfg.Servers, cfg.CLI); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DiscoverPath resolves the config file path per the order: explicit
// flag value, then ./porter.toml, then <user-config-dir>/porter/porter.toml.
func DiscoverPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if _, err := os.Stat("porter.toml"); err == nil {
		return "porter.toml", nil
	}
	dir, err := os.UserConfigDir()
	if err == nil {
		candidate := filepath.Join(dir, "porter", "porter.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &portererr.ConfigInvalidError{Reason: "no config file found (checked --config, ./porter.toml, user config dir)"}
}

func validate(cfg *Config) error {
	seen := make(map[string]string, len(cfg.Servers)+len(cfg.CLI))

	for name, s := range cfg.Servers {
		if err := namespace.ValidateSlug(s.Slug); err != nil {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("servers.%s: %v", name, err)}
		}
		if s.Transport != "stdio" && s.Transport != "http" {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("servers.%s: transport must be \"stdio\" or \"http\", got %q", name, s.Transport)}
		}
		if s.Transport == "stdio" && s.Command == "" {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("servers.%s: stdio transport requires command", name)}
		}
		if s.Transport == "http" && s.URL == "" {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("servers.%s: http transport requires url", name)}
		}
		if _, ok := seen[s.Slug]; ok {
			return &portererr.DuplicateSlugError{Slug: s.Slug}
		}
		seen[s.Slug] = "servers." + name
	}

	for name, c := range cfg.CLI {
		if err := namespace.ValidateSlug(c.Slug); err != nil {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("cli.%s: %v", name, err)}
		}
		if c.Command == "" {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("cli.%s: command is required", name)}
		}
		if _, ok := seen[c.Slug]; ok {
			return &portererr.DuplicateSlugError{Slug: c.Slug}
		}
		seen[c.Slug] = "cli." + name
	}

	return nil
}

// substituteEnv walks every env table and replaces each value, which
// must begin with "$", with the named environment variable's value. A
// bare value is a ConfigInvalid error: literal secrets can never enter
// config by construction.
func substituteEnv(servers map[string]ServerEntry, clis map[string]CLIEntry) error {
	for name, s := range servers {
		resolved, err := resolveEnvTable(s.Env)
		if err != nil {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("servers.%s: %v", name, err)}
		}
		s.Env = resolved
		servers[name] = s
	}
	for name, c := range clis {
		resolved, err := resolveEnvTable(c.Env)
		if err != nil {
			return &portererr.ConfigInvalidError{Reason: fmt.Sprintf("cli.%s: %v", name, err)}
		}
		c.Env = resolved
		clis[name] = c
	}
	return nil
}

func resolveEnvTable(env map[string]string) (map[string]string, error) {
	if len(env) == 0 {
		return env, nil
	}
	resolved := make(map[string]string, len(env))
	for key, value := range env {
		if !strings.HasPrefix(value, "$") {
			return nil, fmt.Errorf("env.%s: value %q must begin with $ and name an environment variable", key, value)
		}
		varName := value[1:]
		resolved[key] = os.Getenv(varName)
	}
	return resolved, nil
}
