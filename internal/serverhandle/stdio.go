package serverhandle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/porter/internal/health"
	"github.com/nextlevelbuilder/porter/internal/portererr"
	"github.com/nextlevelbuilder/porter/internal/provider"
)

const pingInterval = 15 * time.Second

// StdioConfig configures one [servers.<name>] stdio entry.
type StdioConfig struct {
	Slug    string
	Command string
	Args    []string
	Env     map[string]string
	Cwd     string
}

// StdioHandle supervises one MCP server spoken over a subprocess's
// stdin/stdout. On abnormal exit it restarts with exponential backoff,
// re-issuing initialize and tools/list on every successful restart.
// While a restart is pending, Tools returns empty and CallTool fails
// fast with TransientlyUnavailable.
type StdioHandle struct {
	cfg     StdioConfig
	tracker *health.Tracker
	snap    toolsSnapshot

	mu          sync.Mutex
	client      *mcpclient.Client
	restarting  atomic.Bool
	cancel      context.CancelFunc
}

// NewStdioHandle starts the restart supervisor and returns without
// waiting: the supervisor spawns the subprocess and performs the
// initialize/tools-list handshake in the background. Errors from the
// first spawn attempt are non-fatal: the handle stays in the
// restarting state and keeps trying.
func NewStdioHandle(ctx context.Context, cfg StdioConfig) *StdioHandle {
	h := &StdioHandle{cfg: cfg, tracker: health.NewTracker()}
	superCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	go h.supervise(superCtx)
	return h
}

func (h *StdioHandle) Slug() string {
	return h.cfg.Slug
}

func (h *StdioHandle) Transport() string {
	return "stdio"
}

func (h *StdioHandle) Tools() []provider.Tool {
	if h.restarting.Load() {
		return nil
	}
	return h.snap.get()
}

func (h *StdioHandle) Health() health.State {
	return h.tracker.State()
}

func (h *StdioHandle) CallTool(ctx context.Context, name string, argsJSON []byte) ([]byte, error) {
	if h.restarting.Load() {
		return nil, &portererr.TransientlyUnavailableError{Slug: h.cfg.Slug}
	}

	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	if client == nil {
		return nil, &portererr.TransientlyUnavailableError{Slug: h.cfg.Slug}
	}

	var args map[string]any
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := client.CallTool(ctx, req)
	if err != nil {
		h.tracker.Record(false)
		return nil, &portererr.TransportError{Slug: h.cfg.Slug, Detail: err.Error()}
	}
	h.tracker.Record(true)

	return json.Marshal(result)
}

func (h *StdioHandle) Shutdown(ctx context.Context) error {
	h.cancel()
	h.mu.Lock()
	client := h.client
	h.client = nil
	h.mu.Unlock()
	if client != nil {
		return client.Close()
	}
	return nil
}

// supervise owns the connect/restart loop for the lifetime of the
// handle: connect, wait for the client to signal it has died, then
// back off and retry. The history in h.tracker is never reset across
// restarts, by design.
func (h *StdioHandle) supervise(ctx context.Context) {
	backoff := time.Duration(0)
	for {
		h.restarting.Store(true)
		client, err := h.connect(ctx)
		if err != nil {
			h.tracker.Record(false)
			slog.Warn("serverhandle.stdio.connect_failed", "slug", h.cfg.Slug, "error", err)
			backoff = nextBackoff(backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
				continue
			}
		}

		h.mu.Lock()
		h.client = client
		h.mu.Unlock()
		h.restarting.Store(false)
		backoff = 0
		slog.Info("serverhandle.stdio.connected", "slug", h.cfg.Slug)

		h.watchUntilDead(ctx, client)

		h.mu.Lock()
		h.client = nil
		h.mu.Unlock()
		h.snap.clear()

		if ctx.Err() != nil {
			return
		}
		slog.Warn("serverhandle.stdio.disconnected", "slug", h.cfg.Slug)
	}
}

// watchUntilDead pings the subprocess at a fixed interval until a ping
// fails or the context is cancelled. Any ping error ends the watch and
// leads to a restart, including an error response from a server that
// is still running.
func (h *StdioHandle) watchUntilDead(ctx context.Context, client *mcpclient.Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := client.Ping(ctx); err != nil {
				h.tracker.Record(false)
				return
			}
			h.tracker.Record(true)
		}
	}
}

func (h *StdioHandle) connect(ctx context.Context) (*mcpclient.Client, error) {
	envSlice := mapToEnvSlice(h.cfg.Env)
	client, err := mcpclient.NewStdioMCPClient(h.cfg.Command, envSlice, h.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "porter", Version: "0.1.0"}

	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	listResult, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("list tools: %w", err)
	}
	h.snap.set(fromMCPTools(listResult.Tools))

	client.OnNotification(func(n mcpgo.JSONRPCNotification) {
		if n.Method == "notifications/tools/list_changed" {
			h.refreshTools(ctx, client)
		}
	})

	return client, nil
}

func (h *StdioHandle) refreshTools(ctx context.Context, client *mcpclient.Client) {
	listResult, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		slog.Warn("serverhandle.stdio.refresh_failed", "slug", h.cfg.Slug, "error", err)
		return
	}
	h.snap.set(fromMCPTools(listResult.Tools))
}

func mapToEnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
