package namespace

import (
	"errors"
	"testing"
)

func TestValidateSlug(t *testing.T) {
	cases := []struct {
		slug    string
		wantErr bool
	}{
		{"aws", false},
		{"my-cli-1", false},
		{"", true},
		{"has__sep", true},
		{"bad space", true},
		{"bad/slash", true},
	}
	for _, c := range cases {
		err := ValidateSlug(c.slug)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateSlug(%q) err=%v, wantErr=%v", c.slug, err, c.wantErr)
		}
	}
}

func TestNamespacedSplitRoundTrip(t *testing.T) {
	cases := []struct{ slug, tool string }{
		{"aws", "get"},
		{"gh", "get"},
		{"my-cli", "list_things"},
	}
	for _, c := range cases {
		n := Namespaced(c.slug, c.tool)
		gotSlug, gotTool, err := Split(n)
		if err != nil {
			t.Fatalf("Split(%q) returned error: %v", n, err)
		}
		if gotSlug != c.slug || gotTool != c.tool {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", n, gotSlug, gotTool, c.slug, c.tool)
		}
	}
}

func TestSplit_Malformed(t *testing.T) {
	_, _, err := Split("no-separator-here")
	if !errors.Is(err, ErrMalformedName) {
		t.Fatalf("expected ErrMalformedName, got %v", err)
	}
}

func TestNamespacing_NoCollision(t *testing.T) {
	a := Namespaced("aws", "get")
	b := Namespaced("gh", "get")
	if a == b {
		t.Fatalf("expected distinct namespaced names, both were %q", a)
	}
}
