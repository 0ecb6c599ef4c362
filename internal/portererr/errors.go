// Package portererr defines Porter's typed error kinds. Callers compare
// with errors.As rather than matching on message strings, except where
// spec text pins down an exact message (AccessDenied's reason, carried
// verbatim into the tool result).
package portererr

import "fmt"

// ConfigInvalidError reports a malformed config: bad TOML, unknown
// fields, bare (non-$) env values, or slug violations.
type ConfigInvalidError struct {
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("config invalid: %s", e.Reason)
}

// DuplicateSlugError reports two provider entries sharing a slug.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("duplicate slug: %s", e.Slug)
}

// AccessDeniedError reports an Access Guard rejection. Reason carries
// the guard's literal message verbatim: "explicit deny: <prefix>",
// "not in allow list", or the write-check's exact regression-anchored
// wording ("Command blocked: ... is a write operation. Enable
// write_access in config to allow.").
type AccessDeniedError struct {
	Slug   string
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return e.Reason
}

// UnknownToolError reports a routing miss: the namespaced name's slug
// has no registered provider.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ProviderUnhealthyError reports the Registry refusing to route a call
// because the target provider is Unhealthy.
type ProviderUnhealthyError struct {
	Slug string
}

func (e *ProviderUnhealthyError) Error() string {
	return fmt.Sprintf("provider unhealthy: %s", e.Slug)
}

// TimeoutError reports a call exceeding its configured deadline, or a
// provider failing to reach Healthy/Degraded within the startup grace.
type TimeoutError struct {
	Slug string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s", e.Slug)
}

// TransportError reports a stdio or HTTP transport failure.
type TransportError struct {
	Slug   string
	Detail string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %s", e.Slug, e.Detail)
}

// DiscoveryError is non-fatal: logged, discovery continues past it.
type DiscoveryError struct {
	Slug   string
	Detail string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error for %s: %s", e.Slug, e.Detail)
}

// MalformedNameError reports a namespaced-name split failure.
type MalformedNameError struct {
	Name string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed name: %s", e.Name)
}

// TransientlyUnavailableError reports a call made to a Server Handle
// while its STDIO supervisor is mid-restart.
type TransientlyUnavailableError struct {
	Slug string
}

func (e *TransientlyUnavailableError) Error() string {
	return fmt.Sprintf("transiently unavailable: %s", e.Slug)
}
