package cli

import (
	"bufio"
	"regexp"
	"strings"
)

// ArgumentSchema is the JSON-Schema fragment derived from a subcommand's
// --help output, or supplied verbatim via schema_override.
type ArgumentSchema struct {
	Positionals []string            `json:"positionals,omitempty"`
	Options     []OptionSchema      `json:"options,omitempty"`
	Enums       map[string][]string `json:"enums,omitempty"`
	Raw         map[string]any      `json:"-"`
}

// OptionSchema describes one named flag discovered in help text.
type OptionSchema struct {
	Long     string `json:"long,omitempty"`
	Short    string `json:"short,omitempty"`
	HasValue bool   `json:"has_value"`
}

// ToJSONSchema renders the discovered schema as a JSON-Schema object
// describing the tool's input. Overridden schemas are returned as-is.
// Execution always goes through the single "args" array (the CLI is
// invoked with argv, not named parameters), but its description
// surfaces whatever positionals/options/enums discovery found so a
// caller knows what belongs in that array.
func (s ArgumentSchema) ToJSONSchema() map[string]any {
	if s.Raw != nil {
		return s.Raw
	}
	properties := map[string]any{
		"args": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": s.argsDescription(),
		},
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func (s ArgumentSchema) argsDescription() string {
	desc := "additional positional arguments and flags, passed through verbatim"
	if len(s.Positionals) > 0 {
		desc += "; positionals: " + strings.Join(s.Positionals, ", ")
	}
	if len(s.Options) > 0 {
		names := make([]string, 0, len(s.Options))
		for _, o := range s.Options {
			name := o.Long
			if name == "" {
				name = o.Short
			} else if o.Short != "" {
				name = o.Long + "/" + o.Short
			}
			names = append(names, name)
		}
		desc += "; options: " + strings.Join(names, ", ")
	}
	if len(s.Enums) > 0 {
		for flag, values := range s.Enums {
			desc += "; " + flag + " one of: " + strings.Join(values, ", ")
		}
	}
	return desc
}

var (
	commandsHeading    = regexp.MustCompile(`(?i)^\s*(commands|subcommands|available commands)\s*:?\s*$`)
	positionalsHeading = regexp.MustCompile(`(?i)^\s*(positional arguments|arguments|positionals)\s*:?\s*$`)
	usageLine          = regexp.MustCompile(`(?i)^\s*usage\s*:`)
	usageToken         = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9_-]*)>|\[([A-Z][A-Z0-9_-]*)\]`)
	shortLongFlag      = regexp.MustCompile(`-([a-zA-Z]),?\s+--([a-zA-Z][a-zA-Z0-9-]*)(=<[^>]+>|\s+<[^>]+>|\s+[A-Z_]+)?`)
	longFlagPattern    = regexp.MustCompile(`--([a-zA-Z][a-zA-Z0-9-]*)(=<[^>]+>|\s+<[^>]+>|\s+[A-Z_]+)?`)
	shortFlagPattern   = regexp.MustCompile(`(?:^|\s)-([a-zA-Z])(?:,|\s|$)`)
	leadingToken       = regexp.MustCompile(`^\s{0,4}([a-zA-Z][a-zA-Z0-9_-]*)`)
)

// section tracks which heading-delimited block of help text the
// scanner is currently inside, so the same leading-token heuristic can
// feed either subcommands or positionals depending on context.
type section int

const (
	sectionNone section = iota
	sectionCommands
	sectionPositionals
)

// ParseHelp tolerantly extracts subcommand tokens, positional
// arguments, and option flags (long and short form) from raw --help
// text. An unparseable or empty input yields a zero-value schema
// rather than an error: discovery must degrade gracefully.
func ParseHelp(helpText string) (subcommands []string, schema ArgumentSchema) {
	if strings.TrimSpace(helpText) == "" {
		return nil, ArgumentSchema{}
	}

	scanner := bufio.NewScanner(strings.NewReader(helpText))
	cur := sectionNone
	seenOptions := make(map[string]bool)
	var positionals []string

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if commandsHeading.MatchString(trimmed) {
			cur = sectionCommands
			continue
		}
		if positionalsHeading.MatchString(trimmed) {
			cur = sectionPositionals
			continue
		}
		if trimmed == "" {
			cur = sectionNone
			continue
		}

		if usageLine.MatchString(trimmed) {
			for _, m := range usageToken.FindAllStringSubmatch(trimmed, -1) {
				name := m[1]
				if name == "" {
					name = m[2]
				}
				positionals = append(positionals, name)
			}
			continue
		}

		switch cur {
		case sectionCommands:
			if m := leadingToken.FindStringSubmatch(line); m != nil {
				subcommands = append(subcommands, m[1])
			}
			continue
		case sectionPositionals:
			if m := leadingToken.FindStringSubmatch(line); m != nil {
				positionals = append(positionals, m[1])
			}
			continue
		}

		for _, m := range shortLongFlag.FindAllStringSubmatch(line, -1) {
			long := m[2]
			if seenOptions[long] {
				continue
			}
			seenOptions[long] = true
			seenOptions["-"+m[1]] = true
			schema.Options = append(schema.Options, OptionSchema{
				Long:     "--" + long,
				Short:    "-" + m[1],
				HasValue: strings.TrimSpace(m[3]) != "",
			})
		}
		for _, m := range longFlagPattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if seenOptions[name] {
				continue
			}
			seenOptions[name] = true
			schema.Options = append(schema.Options, OptionSchema{
				Long:     "--" + name,
				HasValue: strings.TrimSpace(m[2]) != "",
			})
		}
		for _, m := range shortFlagPattern.FindAllStringSubmatch(line, -1) {
			short := m[1]
			key := "-" + short
			if seenOptions[key] {
				continue
			}
			seenOptions[key] = true
			schema.Options = append(schema.Options, OptionSchema{Short: "-" + short})
		}
	}

	schema.Positionals = dedupe(positionals)
	return dedupe(subcommands), schema
}

func dedupe(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
