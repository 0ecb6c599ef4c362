// Package cmd implements Porter's command-line surface: porter serve
// (streamable HTTP) and porter stdio, both built on the same
// config-load, hot-reload, and registry wiring.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/porter/internal/registry"
)

const shutdownTimeout = 10 * time.Second
const porterVersion = "0.1.0"

// errInterrupted is returned by runServe/runStdio when shutdown was
// triggered by SIGINT/SIGTERM rather than an error, so Execute can map
// it to exit code 130 per the CLI's exit-code contract.
var errInterrupted = errors.New("interrupted")

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "porter",
	Short: "Porter aggregates MCP servers and CLI tools behind one MCP endpoint",
	Long: `Porter is an MCP gateway. It connects to the MCP servers and CLI
programs listed in porter.toml, namespaces their tools under "<slug>__",
and re-exposes the merged set through its own MCP endpoint. Config
changes are picked up without restarting: porter watches porter.toml and
hot-swaps the tool registry in place.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to porter.toml (default: ./porter.toml, then the user config dir)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stdioCmd)
}

// Execute runs the root command: exit 0 on clean return, 130 when
// shutdown was triggered by a signal, 1 on any other error.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, errInterrupted) {
		os.Exit(130)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func configureLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func logStartupSummary(statuses []registry.ProviderStatus) {
	for _, s := range statuses {
		slog.Info("porter.provider.ready", "slug", s.Slug, "transport", s.Transport, "health", s.Health, "tools", s.ToolCount)
	}
	slog.Info("porter.ready", "providers", len(statuses))
}
