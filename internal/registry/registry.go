// Package registry aggregates all configured providers, vends the
// merged and namespaced tool list, routes calls by slug prefix, and is
// the unit atomically swapped by the hot-reloader.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/cli"
	"github.com/nextlevelbuilder/porter/internal/config"
	"github.com/nextlevelbuilder/porter/internal/health"
	"github.com/nextlevelbuilder/porter/internal/namespace"
	"github.com/nextlevelbuilder/porter/internal/portererr"
	"github.com/nextlevelbuilder/porter/internal/provider"
	"github.com/nextlevelbuilder/porter/internal/serverhandle"
	"github.com/nextlevelbuilder/porter/internal/telemetry"
)

// startupGrace bounds how long from_config waits for providers still
// Starting to reach Healthy/Degraded before returning anyway.
const startupGrace = 2 * time.Second

// NamespacedTool is one tool as the Registry exposes it externally:
// re-labelled with the slug__name separator and "[via slug] "
// description prefix.
type NamespacedTool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Registry is an immutable, post-construction aggregation of
// providers. Hot-reload creates a new Registry and discards the old
// one rather than mutating this one in place.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
}

// ProviderStatus summarizes one provider for the startup summary log
// and any future introspection surface.
type ProviderStatus struct {
	Slug      string
	Transport string
	Health    health.State
	ToolCount int
}

// FromConfig validates slug uniqueness (already enforced by
// config.Load, re-checked here defensively), spawns one provider per
// enabled entry, and waits up to startupGrace for providers to settle
// out of Starting before returning. Providers still Starting after the
// grace period are kept. Tools and CallTool exclude only Unhealthy
// providers, so a Starting provider's tools are listed and routed as
// soon as it reports them.
func FromConfig(ctx context.Context, cfg *config.Config, profiles map[string]*access.Profile) (*Registry, error) {
	ctx, span := otel.Tracer(telemetry.Tracer).Start(ctx, "registry.FromConfig")
	defer span.End()

	providers := make(map[string]provider.Provider)

	for _, s := range cfg.Servers {
		if !s.IsEnabled() {
			continue
		}
		if _, exists := providers[s.Slug]; exists {
			err := &portererr.DuplicateSlugError{Slug: s.Slug}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		providers[s.Slug] = buildServerProvider(ctx, s)
	}

	for _, c := range cfg.CLI {
		if !c.IsEnabled() {
			continue
		}
		if _, exists := providers[c.Slug]; exists {
			err := &portererr.DuplicateSlugError{Slug: c.Slug}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		p, errs := buildCLIProvider(ctx, c, profiles)
		for _, e := range errs {
			slog.Warn("registry.cli.discovery_error", "slug", c.Slug, "error", e)
		}
		providers[c.Slug] = p
	}

	awaitSettled(ctx, providers, startupGrace)

	return &Registry{providers: providers}, nil
}

// New wraps an already-built set of providers in a Registry directly,
// bypassing config loading and discovery. It exists for callers (tests
// in other packages, mainly) that need a Registry over providers they
// already constructed or stubbed.
func New(providers map[string]provider.Provider) *Registry {
	return &Registry{providers: providers}
}

func buildServerProvider(ctx context.Context, s config.ServerEntry) provider.Provider {
	ctx, span := otel.Tracer(telemetry.Tracer).Start(ctx, "registry.buildServerProvider")
	span.SetAttributes(attribute.String("porter.slug", s.Slug), attribute.String("porter.transport", s.Transport))
	defer span.End()

	switch s.Transport {
	case "stdio":
		return serverhandle.NewStdioHandle(ctx, serverhandle.StdioConfig{
			Slug:    s.Slug,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
			Cwd:     s.Cwd,
		})
	default:
		return serverhandle.NewHTTPHandle(ctx, serverhandle.HTTPConfig{Slug: s.Slug, URL: s.URL})
	}
}

func buildCLIProvider(ctx context.Context, c config.CLIEntry, profiles map[string]*access.Profile) (provider.Provider, []error) {
	ctx, span := otel.Tracer(telemetry.Tracer).Start(ctx, "registry.buildCLIProvider")
	span.SetAttributes(attribute.String("porter.slug", c.Slug))
	defer span.End()

	var prof *access.Profile
	if c.Profile != "" {
		prof = profiles[c.Profile]
	}

	expand := false
	if prof != nil {
		expand = prof.ExpandByDefault
	}
	if c.ExpandSubcommands != nil {
		expand = *c.ExpandSubcommands
	}

	rule := access.Rule{
		Allow:       cli.ParseRulePrefixes(c.Allow),
		Deny:        cli.ParseRulePrefixes(c.Deny),
		WriteAccess: c.WriteAccess,
	}

	harnessCfg := cli.Config{
		Slug:              c.Slug,
		Command:           c.Command,
		OriginalCommand:   c.Command,
		Profile:           prof,
		Rule:              rule,
		InjectFlags:       injectFlags(prof, c.InjectFlags),
		Env:               mapEnvToSlice(c.Env),
		Cwd:               c.Cwd,
		TimeoutSecs:       c.TimeoutSecsOrDefault(),
		ExpandSubcommands: expand,
	}

	overrides := map[string]cli.ArgumentSchema{}
	if c.SchemaOverride != nil {
		overrides[""] = cli.ArgumentSchema{Raw: c.SchemaOverride}
	}

	return cli.Build(ctx, harnessCfg, c.HelpDepthOrDefault(), overrides)
}

func injectFlags(prof *access.Profile, configured []string) []string {
	if prof == nil {
		return configured
	}
	out := make([]string, 0, len(prof.DefaultInjectFlags)+len(configured))
	out = append(out, prof.DefaultInjectFlags...)
	out = append(out, configured...)
	return out
}

// mapEnvToSlice turns a config env table into the KEY=VALUE slice form
// exec.Cmd.Env and the CLI harness's Invocation.Env expect.
func mapEnvToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func awaitSettled(ctx context.Context, providers map[string]provider.Provider, grace time.Duration) {
	deadline := time.After(grace)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			if allSettled(providers) {
				return
			}
		}
	}
}

func allSettled(providers map[string]provider.Provider) bool {
	for _, p := range providers {
		if p.Health() == health.Starting {
			return false
		}
	}
	return true
}

// Tools returns the concatenation of every non-Unhealthy provider's
// current tool snapshot, namespaced and stably ordered by slug then by
// original tool name.
func (r *Registry) Tools() []NamespacedTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.providers))
	for slug := range r.providers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var out []NamespacedTool
	for _, slug := range slugs {
		p := r.providers[slug]
		if p.Health() == health.Unhealthy {
			continue
		}
		tools := p.Tools()
		sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
		for _, t := range tools {
			out = append(out, NamespacedTool{
				Name:        namespace.Namespaced(slug, t.Name),
				Description: namespace.DescriptionPrefix(slug) + t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}
	return out
}

// CallTool splits the namespaced name, resolves the target provider,
// and routes the call through it after an Unhealthy check.
func (r *Registry) CallTool(ctx context.Context, namespacedName string, argsJSON []byte) ([]byte, error) {
	ctx, span := otel.Tracer(telemetry.Tracer).Start(ctx, "registry.CallTool")
	span.SetAttributes(attribute.String("porter.tool", namespacedName))
	defer span.End()

	slug, original, err := namespace.Split(namespacedName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &portererr.MalformedNameError{Name: namespacedName}
	}
	span.SetAttributes(attribute.String("porter.slug", slug))

	r.mu.RLock()
	p, ok := r.providers[slug]
	r.mu.RUnlock()
	if !ok {
		err := &portererr.UnknownToolError{Name: namespacedName}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if p.Health() == health.Unhealthy {
		err := &portererr.ProviderUnhealthyError{Slug: slug}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, callErr := p.CallTool(ctx, original, argsJSON)
	if callErr != nil {
		span.SetStatus(codes.Error, callErr.Error())
	}
	return result, callErr
}

// Statuses summarizes every provider's current health for the startup
// log and operator introspection.
func (r *Registry) Statuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.providers))
	for slug := range r.providers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]ProviderStatus, 0, len(slugs))
	for _, slug := range slugs {
		p := r.providers[slug]
		out = append(out, ProviderStatus{
			Slug:      slug,
			Transport: p.Transport(),
			Health:    p.Health(),
			ToolCount: len(p.Tools()),
		})
	}
	return out
}

// Shutdown broadcasts cancellation to all providers and awaits them
// with a bounded deadline; subprocesses still alive are killed by each
// provider's own Shutdown.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	providers := make([]provider.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(providers))
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			errs[i] = p.Shutdown(shutdownCtx)
		}(i, p)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return fmt.Errorf("shutting down providers: %w", e)
		}
	}
	return nil
}
