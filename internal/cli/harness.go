// Package cli turns one configured command-line program into one or
// more namespaced MCP tools: help-text discovery, schema extraction,
// the read-only heuristic, and bounded, access-guarded execution.
package cli

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/health"
	"github.com/nextlevelbuilder/porter/internal/provider"
)

// spawnRateLimit and spawnBurst bound how often one Harness spawns
// subprocesses, independent of the Access Guard and the per-call
// timeout: a misbehaving caller looping on a cheap tool still pays for
// process creation, so every Harness caps it regardless of which tool
// is invoked.
const (
	spawnRateLimit rate.Limit = 20
	spawnBurst                = 40
)

// readOnlyLeafTokens is the well-known set of leaf subcommand tokens
// treated as read-only when no profile classifies them.
var readOnlyLeafTokens = map[string]bool{
	"list": true, "get": true, "describe": true, "show": true,
	"status": true, "version": true, "view": true, "ls": true,
	"cat": true, "print": true, "help": true,
}

// conservativeRootWhitelist lists root commands that are read-only in
// their entirety even without a profile (grounded by their position in
// BuiltinProfiles' always-read-only entries, generalised for unknown
// commands discovered without a matching profile).
var conservativeRootWhitelist = map[string]bool{
	"doggo": true, "rg": true, "tldr": true, "whois": true,
}

// Tool describes one MCP tool surfaced by a CLI provider in its
// original (un-namespaced) form, plus the fixed subcommand path
// invocation replays. The Registry applies namespace.Namespaced and
// the "[via slug] " description prefix at aggregation time.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	SubcmdPath  []string
}

// Config bundles everything Build needs to turn discovery output into
// a tool surface and a ready-to-use Invocation template.
type Config struct {
	Slug              string
	Command           string
	OriginalCommand   string // the root command name, for whitelist checks
	Profile           *access.Profile
	Rule              access.Rule
	InjectFlags       []string
	Env               []string
	Cwd               string
	TimeoutSecs       int
	ExpandSubcommands bool
}

// Harness is the constructed provider state for one CLI entry: its
// tool surface and the shared invocation template used by Call.
type Harness struct {
	cfg     Config
	tools   []Tool
	tracker *health.Tracker
	limiter *rate.Limiter
}

// Build runs discovery (unless schema overrides make it unnecessary)
// and constructs the tool surface according to ExpandSubcommands.
func Build(ctx context.Context, cfg Config, helpDepth int, overrides map[string]ArgumentSchema) (*Harness, []error) {
	var nodes []DiscoveredCommand
	var errs []error
	if _, overridden := overrides[""]; cfg.ExpandSubcommands || !overridden {
		nodes, errs = Discover(ctx, cfg.Slug, cfg.Command, cfg.Env, cfg.Cwd, helpDepth)
	}

	var tools []Tool
	if cfg.ExpandSubcommands {
		for _, node := range nodes {
			if len(node.Path) == 0 {
				continue
			}
			if !isReadOnly(node.Path, cfg) {
				continue
			}
			schema := node.Schema
			if override, ok := overrides[strings.Join(node.Path, " ")]; ok {
				schema = override
			}
			tools = append(tools, Tool{
				Name:        toolName(node.Path),
				Description: cfg.OriginalCommand + " " + strings.Join(node.Path, " "),
				InputSchema: schema.ToJSONSchema(),
				SubcmdPath:  node.Path,
			})
		}
	} else {
		schema := ArgumentSchema{}
		if override, ok := overrides[""]; ok {
			schema = override
		}
		tools = []Tool{{
			Name:        cfg.OriginalCommand,
			Description: cfg.OriginalCommand,
			InputSchema: schema.ToJSONSchema(),
			SubcmdPath:  nil,
		}}
	}

	return &Harness{cfg: cfg, tools: tools, tracker: health.NewTracker(), limiter: rate.NewLimiter(spawnRateLimit, spawnBurst)}, errs
}

// ToolDefs returns the constructed tool surface in its internal form,
// including the subcommand path Call replays. Tools returns the same
// surface without that path, for the Provider interface.
func (h *Harness) ToolDefs() []Tool {
	return h.tools
}

// Slug implements provider.Provider.
func (h *Harness) Slug() string {
	return h.cfg.Slug
}

// Transport implements provider.Provider.
func (h *Harness) Transport() string {
	return "cli"
}

// Tools implements provider.Provider.
func (h *Harness) Tools() []provider.Tool {
	out := make([]provider.Tool, 0, len(h.tools))
	for _, t := range h.tools {
		out = append(out, provider.Tool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

// Health implements provider.Provider.
func (h *Harness) Health() health.State {
	return h.tracker.State()
}

// Shutdown implements provider.Provider. The CLI harness owns no
// long-lived resources between calls, so this is a no-op.
func (h *Harness) Shutdown(ctx context.Context) error {
	return nil
}

// CallTool implements provider.Provider: argsJSON must decode to an
// object with a string-array "args" field carrying the user-supplied
// positional arguments and flags.
func (h *Harness) CallTool(ctx context.Context, name string, argsJSON []byte) ([]byte, error) {
	var payload struct {
		Args []string `json:"args"`
	}
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &payload); err != nil {
			h.tracker.Record(false)
			return nil, err
		}
	}

	result, err := h.Call(ctx, name, payload.Args)
	h.tracker.Record(err == nil)
	if err != nil {
		return nil, err
	}
	return result.ToJSON()
}

// Call executes the tool identified by its original (un-namespaced)
// name with the given user-supplied string arguments.
func (h *Harness) Call(ctx context.Context, originalName string, userArgs []string) (Result, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	var subcmdPath []string
	for _, t := range h.tools {
		if t.Name == originalName {
			subcmdPath = t.SubcmdPath
			break
		}
	}

	inv := Invocation{
		Command:     h.cfg.Command,
		SubcmdPath:  subcmdPath,
		InjectFlags: h.cfg.InjectFlags,
		UserArgs:    userArgs,
		Env:         h.cfg.Env,
		Cwd:         h.cfg.Cwd,
		TimeoutSecs: h.cfg.TimeoutSecs,
		Rule:        h.cfg.Rule,
		Profile:     h.cfg.Profile,
	}
	return Execute(ctx, h.cfg.Slug, inv)
}

// toolName turns a discovered subcommand path into a flat tool name,
// e.g. ["s3","ls"] -> "s3_ls".
func toolName(path []string) string {
	return strings.Join(path, "_")
}

// isReadOnly applies the profile's classification first, falling back
// to the leaf-token heuristic and the conservative root whitelist.
func isReadOnly(path []string, cfg Config) bool {
	if cfg.Profile != nil {
		return cfg.Profile.IsReadOnly(path)
	}
	if conservativeRootWhitelist[cfg.OriginalCommand] {
		return true
	}
	leaf := path[len(path)-1]
	return readOnlyLeafTokens[leaf]
}

// ParseRulePrefixes splits the space-separated-string form the TOML
// config layer stores allow/deny prefixes in (e.g. "s3 rm") into the
// token-slice form access.Rule uses internally.
func ParseRulePrefixes(entries []string) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.Fields(e))
	}
	return out
}
