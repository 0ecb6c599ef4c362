// Package provider defines the capability set every tool provider
// (CLI harness, STDIO server handle, HTTP server handle) implements,
// and the Tool shape the Registry aggregates. It exists as its own
// package so that internal/cli and internal/serverhandle can implement
// Provider without importing internal/registry, which constructs them.
package provider

import (
	"context"

	"github.com/nextlevelbuilder/porter/internal/health"
)

// Tool is one un-namespaced tool as a provider reports it; the
// Registry applies namespacing and the "[via slug] " description
// prefix when aggregating.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Provider is the capability set every variant (ServerHandle over
// STDIO, ServerHandle over HTTP, CliHandle) exposes uniformly.
type Provider interface {
	// Slug reports the provider's configured namespace prefix.
	Slug() string
	// Transport reports the provider's underlying transport kind
	// ("stdio", "http", or "cli"), for the startup summary log.
	Transport() string
	// Tools returns the provider's current tool snapshot. Must not
	// block on the underlying transport.
	Tools() []Tool
	// CallTool invokes the named (original, un-namespaced) tool with
	// JSON-encoded arguments and returns the JSON-encoded result.
	CallTool(ctx context.Context, name string, argsJSON []byte) ([]byte, error)
	// Health reports the provider's current HealthState.
	Health() health.State
	// Shutdown releases the provider's resources (subprocess, HTTP
	// client, background goroutines).
	Shutdown(ctx context.Context) error
}
