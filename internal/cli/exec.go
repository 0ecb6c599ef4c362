package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/portererr"
)

// maxCapturedBytes bounds stdout/stderr capture; output beyond this is
// truncated with an explicit tail marker.
const maxCapturedBytes = 1 << 20 // 1 MiB

const truncationMarker = "\n... [output truncated]\n"

// Result is the JSON payload returned to the MCP client for a CLI tool
// invocation. Non-zero exits and timeouts are reported in it; access
// denials and spawn errors come back from Execute as typed errors,
// which the MCP server turns into tool error results. None of them is
// a protocol error.
type Result struct {
	ExitCode *int   `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimedOut bool   `json:"timed_out"`
}

// Invocation describes one call into a configured CLI tool.
type Invocation struct {
	Command     string
	SubcmdPath  []string // fixed, discovery-derived prefix
	InjectFlags []string
	UserArgs    []string // always appended as a suffix
	Env         []string
	Cwd         string
	TimeoutSecs int
	Rule        access.Rule
	Profile     *access.Profile
}

// Execute assembles argv, checks it against the Access Guard, spawns
// the subprocess with a bounded timeout, and captures its output. On
// access denial it returns a typed error carrying the guard's reason
// verbatim; the caller turns that into a tool-level failure rather than
// a protocol error.
func Execute(ctx context.Context, slug string, inv Invocation) (Result, error) {
	argv := buildArgv(inv)

	decision := access.Evaluate(argv, inv.Rule, inv.Profile)
	if !decision.Allowed {
		return Result{}, &portererr.AccessDeniedError{Slug: slug, Reason: decision.Reason}
	}

	timeout := time.Duration(inv.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Command, argv...)
	if inv.Cwd != "" {
		cmd.Dir = inv.Cwd
	}
	if len(inv.Env) > 0 {
		cmd.Env = inv.Env
	}

	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		slog.Warn("cli.exec.timeout", "slug", slug, "command", inv.Command, "args", argv)
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), TimedOut: true}, nil
	}

	if err == nil {
		code := 0
		return Result{ExitCode: &code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return Result{ExitCode: &code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	slog.Error("cli.exec.spawn_failed", "slug", slug, "command", inv.Command, "error", err)
	return Result{}, &portererr.TransportError{Slug: slug, Detail: err.Error()}
}

// buildArgv assembles the final argv in the fixed order: the
// discovered subcommand path, then inject flags, then user args as a
// trailing suffix. The command name itself is not part of argv (it is
// the executable path passed to exec.CommandContext separately).
func buildArgv(inv Invocation) []string {
	argv := make([]string, 0, len(inv.SubcmdPath)+len(inv.InjectFlags)+len(inv.UserArgs))
	argv = append(argv, inv.SubcmdPath...)
	argv = append(argv, inv.InjectFlags...)
	argv = append(argv, inv.UserArgs...)
	return argv
}

// ToJSON marshals a Result for return as the tool's JSON result.
func (r Result) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// boundedBuffer caps how much of a stream is retained, appending a
// truncation marker once the limit is crossed.
type boundedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.truncated {
		return len(p), nil
	}
	remaining := maxCapturedBytes - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		b.buf.WriteString(truncationMarker)
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		b.buf.WriteString(truncationMarker)
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}

var _ io.Writer = (*boundedBuffer)(nil)
