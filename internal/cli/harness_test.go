package cli

import (
	"context"
	"testing"
)

func TestBuild_SingleToolWhenNotExpanded(t *testing.T) {
	cfg := Config{
		Slug:            "echocli",
		Command:         "echo",
		OriginalCommand: "echo",
		TimeoutSecs:     5,
	}
	h, _ := Build(context.Background(), cfg, 0, nil)
	tools := h.Tools()
	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
	if tools[0].Name != "echo" {
		t.Fatalf("tool name = %q, want %q", tools[0].Name, "echo")
	}
}

func TestHarness_CallTool(t *testing.T) {
	cfg := Config{
		Slug:            "echocli",
		Command:         "echo",
		OriginalCommand: "echo",
		TimeoutSecs:     5,
	}
	h, _ := Build(context.Background(), cfg, 0, nil)

	resultJSON, err := h.CallTool(context.Background(), "echo", []byte(`{"args":["hi"]}`))
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if len(resultJSON) == 0 {
		t.Fatalf("expected non-empty result JSON")
	}
	if h.Health().String() != "starting" {
		t.Fatalf("Health() = %v, want starting after a single call", h.Health())
	}
}

func TestIsReadOnly_LeafHeuristic(t *testing.T) {
	cfg := Config{OriginalCommand: "somecli"}
	if !isReadOnly([]string{"foo", "list"}, cfg) {
		t.Fatalf("expected 'list' leaf to be read-only")
	}
	if isReadOnly([]string{"foo", "delete"}, cfg) {
		t.Fatalf("expected 'delete' leaf to be treated as write")
	}
}

func TestIsReadOnly_ConservativeRootWhitelist(t *testing.T) {
	cfg := Config{OriginalCommand: "rg"}
	if !isReadOnly([]string{"--files"}, cfg) {
		t.Fatalf("expected rg to be read-only via conservative whitelist")
	}
}

func TestParseRulePrefixes(t *testing.T) {
	got := ParseRulePrefixes([]string{"s3 rm", "ec2 terminate-instances"})
	want := [][]string{{"s3", "rm"}, {"ec2", "terminate-instances"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	}
}
