package cli

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/nextlevelbuilder/porter/internal/portererr"
	"github.com/nextlevelbuilder/porter/internal/telemetry"
)

const discoveryConcurrency = 8
const helpTimeout = 10 * time.Second

// DiscoveredCommand is one node of the bounded subcommand walk: the
// path of tokens from the root command, plus its parsed schema and any
// further subcommand tokens found under it.
type DiscoveredCommand struct {
	Path        []string
	Subcommands []string
	Schema      ArgumentSchema
}

// Discover walks command's subcommand tree by repeatedly invoking
// "<command> <path...> --help", bounded by maxDepth (capped at 5) and a
// concurrency-8 semaphore across in-flight help invocations at each
// tier. Parsing is tolerant: unparseable output yields an empty schema
// for that node rather than aborting the walk. Errors invoking --help
// are reported as non-fatal DiscoveryErrors and that branch is pruned.
func Discover(ctx context.Context, slug, command string, env []string, cwd string, maxDepth int) ([]DiscoveredCommand, []error) {
	ctx, span := otel.Tracer(telemetry.Tracer).Start(ctx, "cli.Discover")
	span.SetAttributes(attribute.String("porter.slug", slug), attribute.Int("porter.max_depth", maxDepth))
	defer span.End()

	if maxDepth > 5 {
		maxDepth = 5
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	sem := semaphore.NewWeighted(discoveryConcurrency)
	var (
		mu     sync.Mutex
		nodes  []DiscoveredCommand
		errs   []error
		wg     sync.WaitGroup
	)

	var walk func(path []string, depth int)
	walk = func(path []string, depth int) {
		defer wg.Done()

		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, &portererr.DiscoveryError{Slug: slug, Detail: err.Error()})
			mu.Unlock()
			return
		}
		helpText, err := runHelp(ctx, command, path, env, cwd)
		sem.Release(1)

		if err != nil {
			mu.Lock()
			errs = append(errs, &portererr.DiscoveryError{Slug: slug, Detail: err.Error()})
			mu.Unlock()
			return
		}

		subs, schema := ParseHelp(helpText)
		node := DiscoveredCommand{Path: append([]string(nil), path...), Subcommands: subs, Schema: schema}
		mu.Lock()
		nodes = append(nodes, node)
		mu.Unlock()

		if depth >= maxDepth {
			return
		}
		for _, sub := range subs {
			childPath := append(append([]string(nil), path...), sub)
			wg.Add(1)
			go walk(childPath, depth+1)
		}
	}

	wg.Add(1)
	go walk(nil, 0)
	wg.Wait()

	if len(errs) > 0 {
		span.SetStatus(codes.Error, errs[0].Error())
	}
	return nodes, errs
}

// runHelp invokes "<command> <path...> --help" with a bounded timeout
// and returns combined stdout. Non-zero exit is tolerated (many CLIs
// print help to stderr or exit non-zero for --help); only a spawn
// failure or timeout is treated as a discovery error.
func runHelp(ctx context.Context, command string, path []string, env []string, cwd string) (string, error) {
	helpCtx, cancel := context.WithTimeout(ctx, helpTimeout)
	defer cancel()

	argv := append(append([]string(nil), path...), "--help")
	cmd := exec.CommandContext(helpCtx, command, argv...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	if len(env) > 0 {
		cmd.Env = env
	}

	out, err := cmd.CombinedOutput()
	if helpCtx.Err() == context.DeadlineExceeded {
		slog.Warn("cli.discovery.help_timeout", "command", command, "path", path)
		return "", helpCtx.Err()
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return string(out), nil
		}
		return "", err
	}
	return string(out), nil
}
