package cli

import "testing"

func TestParseHelp_Empty(t *testing.T) {
	subs, schema := ParseHelp("")
	if subs != nil {
		t.Fatalf("expected nil subcommands for empty help, got %v", subs)
	}
	if len(schema.Options) != 0 {
		t.Fatalf("expected empty schema for empty help, got %+v", schema)
	}
}

func TestParseHelp_Subcommands(t *testing.T) {
	help := `
usage: aws s3 [options] <command>

Commands:
  ls          list buckets
  cp          copy objects
  rm          delete objects

Options:
  --region <region>   AWS region
  --no-cli-pager      disable pager
`
	subs, _ := ParseHelp(help)
	want := map[string]bool{"ls": true, "cp": true, "rm": true}
	if len(subs) != len(want) {
		t.Fatalf("got subcommands %v, want keys of %v", subs, want)
	}
	for _, s := range subs {
		if !want[s] {
			t.Errorf("unexpected subcommand %q", s)
		}
	}
}

func TestParseHelp_Options(t *testing.T) {
	help := `
Options:
  --region <region>   AWS region
  --no-cli-pager      disable pager
`
	_, schema := ParseHelp(help)
	foundRegion, foundPager := false, false
	for _, o := range schema.Options {
		if o.Long == "--region" {
			foundRegion = true
			if !o.HasValue {
				t.Errorf("--region should have a value")
			}
		}
		if o.Long == "--no-cli-pager" {
			foundPager = true
		}
	}
	if !foundRegion || !foundPager {
		t.Fatalf("expected both options discovered, got %+v", schema.Options)
	}
}

func TestParseHelp_ShortAndLongOptions(t *testing.T) {
	help := `
Options:
  -r, --region <region>   AWS region
  -v                       verbose output
`
	_, schema := ParseHelp(help)
	var region, verbose *OptionSchema
	for i := range schema.Options {
		o := &schema.Options[i]
		if o.Long == "--region" {
			region = o
		}
		if o.Short == "-v" && o.Long == "" {
			verbose = o
		}
	}
	if region == nil {
		t.Fatalf("expected --region discovered, got %+v", schema.Options)
	}
	if region.Short != "-r" {
		t.Errorf("--region short form = %q, want -r", region.Short)
	}
	if !region.HasValue {
		t.Errorf("--region should have a value")
	}
	if verbose == nil {
		t.Fatalf("expected standalone -v discovered, got %+v", schema.Options)
	}
}

func TestParseHelp_PositionalsFromHeading(t *testing.T) {
	help := `
usage: tool run

Positional Arguments:
  name        the resource name
  revision    the resource revision
`
	_, schema := ParseHelp(help)
	want := map[string]bool{"name": true, "revision": true}
	if len(schema.Positionals) != len(want) {
		t.Fatalf("got positionals %v, want keys of %v", schema.Positionals, want)
	}
	for _, p := range schema.Positionals {
		if !want[p] {
			t.Errorf("unexpected positional %q", p)
		}
	}
}

func TestParseHelp_PositionalsFromUsageLine(t *testing.T) {
	help := `
Usage: tool cp <source> <dest> [FLAGS]
`
	_, schema := ParseHelp(help)
	want := map[string]bool{"source": true, "dest": true, "FLAGS": true}
	if len(schema.Positionals) != len(want) {
		t.Fatalf("got positionals %v, want keys of %v", schema.Positionals, want)
	}
}

func TestArgumentSchema_OverrideWins(t *testing.T) {
	override := ArgumentSchema{Raw: map[string]any{"type": "object", "properties": map[string]any{"x": map[string]any{"type": "string"}}}}
	got := override.ToJSONSchema()
	if got["type"] != "object" {
		t.Fatalf("override schema not returned as-is: %+v", got)
	}
}
