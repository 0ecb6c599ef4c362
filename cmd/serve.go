package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
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

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run Porter as a streamable HTTP MCP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "address to bind")
	serveCmd.Flags().IntVar(&servePort, "port", 3000, "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	httpSrv := server.NewStreamableHTTPServer(mcpSrv.MCPServer())

	errCh := make(chan error, 1)
	go func() {
		slog.Info("porter.serve.listening", "addr", addr)
		errCh <- httpSrv.Start(addr)
	}()

	interrupted := false
	select {
	case <-ctx.Done():
		slog.Info("porter.serve.shutting_down")
		interrupted = true
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("streamable http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("porter.serve.http_shutdown_error", "error", err)
	}
	if err := handle.Current().Shutdown(shutdownCtx); err != nil {
		slog.Warn("porter.serve.registry_shutdown_error", "error", err)
	}

	if interrupted {
		return errInterrupted
	}
	return nil
}
