// Package access implements the Access Guard: deny/write/allow
// evaluation over a parsed CLI subcommand path.
package access

import "strings"

// Rule is the triple {allow, deny, write_access} of argv-prefix lists.
// Each prefix is an ordered sequence of subcommand tokens, e.g.
// []string{"s3", "rm"}.
type Rule struct {
	Allow       [][]string
	Deny        [][]string
	WriteAccess map[string]bool
}

// Profile supplies read-only classification and default flags for a
// known CLI. A nil *Profile means no profile is attached: IsReadOnly
// reports false for every argv, and Evaluate skips the write check
// entirely.
type Profile struct {
	Name                string
	DefaultInjectFlags  []string
	ReadOnlySubcommands [][]string
	ExpandByDefault     bool
	AlwaysReadOnly      bool
}

// IsReadOnly reports whether argv matches one of the profile's known
// read-only subcommand prefixes, or the profile is blanket read-only
// (doggo, rg, tldr, whois: the whole command is read-only).
func (p *Profile) IsReadOnly(argv []string) bool {
	if p == nil {
		return false
	}
	if p.AlwaysReadOnly {
		return true
	}
	for _, prefix := range p.ReadOnlySubcommands {
		if isPrefix(prefix, argv) {
			return true
		}
	}
	return false
}

// Decision is the Access Guard's verdict.
type Decision struct {
	Allowed bool
	Reason  string
}

// isPrefix reports whether prefix is a token-wise prefix of argv.
func isPrefix(prefix, argv []string) bool {
	if len(prefix) > len(argv) {
		return false
	}
	for i, tok := range prefix {
		if argv[i] != tok {
			return false
		}
	}
	return true
}

func joinPrefix(prefix []string) string {
	return strings.Join(prefix, " ")
}

// Evaluate applies the deny -> write-check -> allow -> pass sequence
// described in the design, returning at the first decisive step.
func Evaluate(argv []string, rule Rule, profile *Profile) Decision {
	for _, deny := range rule.Deny {
		if isPrefix(deny, argv) {
			return Decision{Allowed: false, Reason: "explicit deny: " + joinPrefix(deny)}
		}
	}

	if profile != nil && !profile.IsReadOnly(argv) {
		if !writeAccessGranted(rule.WriteAccess, argv) {
			return Decision{Allowed: false, Reason: writeCheckMessage(argv)}
		}
	}

	if len(rule.Allow) > 0 {
		matched := false
		for _, allow := range rule.Allow {
			if isPrefix(allow, argv) {
				matched = true
				break
			}
		}
		if !matched {
			return Decision{Allowed: false, Reason: "not in allow list"}
		}
	}

	return Decision{Allowed: true}
}

// writeAccessGranted reports whether some prefix in writeAccess maps to
// true and is a prefix of argv.
func writeAccessGranted(writeAccess map[string]bool, argv []string) bool {
	for prefixStr, granted := range writeAccess {
		if !granted {
			continue
		}
		prefix := strings.Fields(prefixStr)
		if isPrefix(prefix, argv) {
			return true
		}
	}
	return false
}

// writeCheckMessage builds the exact, regression-anchored write-check
// denial text: "<cmd> <subcmd> is a write operation. Enable
// write_access in config to allow." prefixed with "Command blocked: ".
func writeCheckMessage(argv []string) string {
	cmd := ""
	if len(argv) > 0 {
		cmd = argv[0]
	}
	subcmd := ""
	if len(argv) > 1 {
		subcmd = argv[1]
	}
	path := strings.TrimSpace(cmd + " " + subcmd)
	return "Command blocked: " + path + " is a write operation. Enable write_access in config to allow."
}
