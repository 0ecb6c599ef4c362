package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/config"
	"github.com/nextlevelbuilder/porter/internal/mcpserver"
	"github.com/nextlevelbuilder/porter/internal/reload"
	"github.com/nextlevelbuilder/porter/internal/telemetry"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Run Porter as a stdio MCP server",
	RunE:  runStdio,
}

func runStdio(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := config.DiscoverPath(configFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	configureLogging(cfg.Logging.Level)

	shutdownTelemetry, err := telemetry.Setup(ctx, "porter", porterVersion)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	mcpSrv := mcpserver.New()

	watcher, handle, err := reload.New(ctx, path, access.BuiltinProfiles(), mcpSrv.Sync)
	if err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer watcher.Close()

	mcpSrv.Sync(handle.Current())
	logStartupSummary(handle.Current().Statuses())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(mcpSrv.MCPServer())
	}()

	var serveErr error
	interrupted := false
	select {
	case <-ctx.Done():
		interrupted = true
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = handle.Current().Shutdown(shutdownCtx)

	if interrupted {
		return errInterrupted
	}
	return serveErr
}
