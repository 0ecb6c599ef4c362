// Package namespace implements slug validation and the slug__tool naming
// convention used to expose every provider's tools under one flat MCP tool
// list without collisions.
package namespace

import (
	"fmt"
	"regexp"
	"strings"
)

// Separator joins a provider's slug to a tool's original name.
const Separator = "__"

// descriptionPrefixFormat produces the "[via slug] " prefix prepended to
// every namespaced tool's description.
const descriptionPrefixFormat = "[via %s] "

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateSlug reports whether s is a legal provider slug: it must match
// [A-Za-z0-9-]+ and must not contain the separator, which would make
// Split ambiguous.
func ValidateSlug(s string) error {
	if s == "" {
		return fmt.Errorf("slug must not be empty")
	}
	if strings.Contains(s, Separator) {
		return fmt.Errorf("slug %q must not contain %q", s, Separator)
	}
	if !slugPattern.MatchString(s) {
		return fmt.Errorf("slug %q must match [A-Za-z0-9-]+", s)
	}
	return nil
}

// Namespaced joins slug and tool into the flat MCP tool name slug__tool.
func Namespaced(slug, tool string) string {
	return slug + Separator + tool
}

// DescriptionPrefix returns the "[via slug] " prefix applied to a
// namespaced tool's description.
func DescriptionPrefix(slug string) string {
	return fmt.Sprintf(descriptionPrefixFormat, slug)
}

// ErrMalformedName is returned by Split when name does not contain the
// separator.
var ErrMalformedName = fmt.Errorf("malformed namespaced tool name")

// Split reverses Namespaced: it finds the first occurrence of the
// separator and returns the slug and original tool name either side of it.
// Slugs are validated to reject the separator, so the first occurrence is
// always the one Namespaced inserted.
func Split(namespaced string) (slug, tool string, err error) {
	idx := strings.Index(namespaced, Separator)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedName, namespaced)
	}
	return namespaced[:idx], namespaced[idx+len(Separator):], nil
}
