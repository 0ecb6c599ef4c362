package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/porter/internal/health"
	"github.com/nextlevelbuilder/porter/internal/portererr"
	"github.com/nextlevelbuilder/porter/internal/provider"
)

// fakeProvider is a minimal provider.Provider stub for exercising
// aggregation and routing without spawning real subprocesses.
type fakeProvider struct {
	slug    string
	tools   []provider.Tool
	tracker *health.Tracker
	calls   int
}

func newFakeProvider(slug string, tools []provider.Tool) *fakeProvider {
	return &fakeProvider{slug: slug, tools: tools, tracker: health.NewTracker()}
}

func (f *fakeProvider) Slug() string           { return f.slug }
func (f *fakeProvider) Transport() string      { return "fake" }
func (f *fakeProvider) Tools() []provider.Tool { return f.tools }
func (f *fakeProvider) Health() health.State   { return f.tracker.State() }
func (f *fakeProvider) Shutdown(ctx context.Context) error {
	return nil
}
func (f *fakeProvider) CallTool(ctx context.Context, name string, argsJSON []byte) ([]byte, error) {
	f.calls++
	return json.Marshal(map[string]string{"called": name})
}

func forceHealthy(f *fakeProvider) {
	for i := 0; i < 5; i++ {
		f.tracker.Record(true)
	}
}

func forceUnhealthy(f *fakeProvider) {
	for i := 0; i < 20; i++ {
		f.tracker.Record(false)
	}
}

func newTestRegistry(providers map[string]provider.Provider) *Registry {
	return New(providers)
}

func TestTools_NamespacingNoCollision(t *testing.T) {
	aws := newFakeProvider("aws", []provider.Tool{{Name: "get", Description: "get things"}})
	gh := newFakeProvider("gh", []provider.Tool{{Name: "get", Description: "get PR"}})
	forceHealthy(aws)
	forceHealthy(gh)

	r := newTestRegistry(map[string]provider.Provider{"aws": aws, "gh": gh})
	tools := r.Tools()

	names := map[string]bool{}
	for _, tool := range tools {
		if names[tool.Name] {
			t.Fatalf("duplicate namespaced tool name %q", tool.Name)
		}
		names[tool.Name] = true
	}
	if !names["aws__get"] || !names["gh__get"] {
		t.Fatalf("expected aws__get and gh__get, got %v", names)
	}
}

func TestCallTool_RoutesToOriginalName(t *testing.T) {
	gh := newFakeProvider("gh", []provider.Tool{{Name: "get"}})
	forceHealthy(gh)
	r := newTestRegistry(map[string]provider.Provider{"gh": gh})

	_, err := r.CallTool(context.Background(), "gh__get", nil)
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if gh.calls != 1 {
		t.Fatalf("expected provider to be called once, got %d", gh.calls)
	}
}

func TestCallTool_UnknownSlug(t *testing.T) {
	r := newTestRegistry(map[string]provider.Provider{})
	_, err := r.CallTool(context.Background(), "missing__tool", nil)
	if _, ok := err.(*portererr.UnknownToolError); !ok {
		t.Fatalf("expected UnknownToolError, got %v (%T)", err, err)
	}
}

func TestUnhealthyProvider_ExcludedAndRejected(t *testing.T) {
	x := newFakeProvider("x", []provider.Tool{{Name: "foo"}})
	forceUnhealthy(x)
	r := newTestRegistry(map[string]provider.Provider{"x": x})

	tools := r.Tools()
	for _, tool := range tools {
		if tool.Name == "x__foo" {
			t.Fatalf("expected unhealthy provider's tools excluded from aggregation")
		}
	}

	_, err := r.CallTool(context.Background(), "x__foo", nil)
	unhealthy, ok := err.(*portererr.ProviderUnhealthyError)
	if !ok {
		t.Fatalf("expected ProviderUnhealthyError, got %v (%T)", err, err)
	}
	if unhealthy.Slug != "x" {
		t.Fatalf("slug = %q, want %q", unhealthy.Slug, "x")
	}
}

func TestCallTool_MalformedName(t *testing.T) {
	r := newTestRegistry(map[string]provider.Provider{})
	_, err := r.CallTool(context.Background(), "no-separator", nil)
	if _, ok := err.(*portererr.MalformedNameError); !ok {
		t.Fatalf("expected MalformedNameError, got %v (%T)", err, err)
	}
}

func TestTools_StableOrdering(t *testing.T) {
	gh := newFakeProvider("gh", []provider.Tool{{Name: "zzz"}, {Name: "aaa"}})
	aws := newFakeProvider("aws", []provider.Tool{{Name: "b"}})
	forceHealthy(gh)
	forceHealthy(aws)

	r := newTestRegistry(map[string]provider.Provider{"gh": gh, "aws": aws})
	tools := r.Tools()

	want := []string{"aws__b", "gh__aaa", "gh__zzz"}
	if len(tools) != len(want) {
		t.Fatalf("got %v, want %v", tools, want)
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Fatalf("tools[%d] = %q, want %q", i, tools[i].Name, name)
		}
	}
}
