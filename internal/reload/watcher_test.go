package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/registry"
)

func TestNew_BuildsInitialRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "porter.toml")
	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, handle, err := New(ctx, path, access.BuiltinProfiles(), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer w.Close()

	if handle.Current() == nil {
		t.Fatalf("expected a Registry generation to be set")
	}
	if len(handle.Current().Tools()) != 0 {
		t.Fatalf("expected empty tool surface for empty config")
	}
}

func TestReload_SwapsGenerationOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "porter.toml")
	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var swapped *registry.Registry
	w, handle, err := New(ctx, path, access.BuiltinProfiles(), func(r *registry.Registry) {
		swapped = r
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer w.Close()

	first := handle.Current()

	if err := os.WriteFile(path, []byte("\n# touched\n"), 0o644); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if handle.Current() != first {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if handle.Current() == first {
		t.Fatalf("expected registry generation to swap after config write")
	}
	if swapped == nil {
		t.Fatalf("expected onSwap callback to fire")
	}
}
