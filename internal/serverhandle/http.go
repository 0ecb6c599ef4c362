package serverhandle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/porter/internal/health"
	"github.com/nextlevelbuilder/porter/internal/portererr"
	"github.com/nextlevelbuilder/porter/internal/provider"
)

// HTTPConfig configures one [servers.<name>] http entry.
type HTTPConfig struct {
	Slug string
	URL  string
}

// HTTPHandle adapts a remote MCP server reached over the Streamable
// HTTP transport. There is no long-lived connection to restart: the
// initial connect (initialize plus tools/list) is retried on the same
// backoff schedule as the stdio supervisor, and tool calls are made
// once and fail straight through to the caller.
type HTTPHandle struct {
	cfg     HTTPConfig
	tracker *health.Tracker
	snap    toolsSnapshot

	mu     sync.Mutex
	client *mcpclient.Client
}

// NewHTTPHandle constructs the Streamable HTTP client and performs the
// initial initialize/tools-list handshake in the background so
// construction never blocks the Registry's startup grace beyond it.
func NewHTTPHandle(ctx context.Context, cfg HTTPConfig) *HTTPHandle {
	h := &HTTPHandle{cfg: cfg, tracker: health.NewTracker()}
	go h.connectWithRetry(ctx)
	return h
}

func (h *HTTPHandle) Slug() string {
	return h.cfg.Slug
}

func (h *HTTPHandle) Transport() string {
	return "http"
}

func (h *HTTPHandle) Tools() []provider.Tool {
	return h.snap.get()
}

func (h *HTTPHandle) Health() health.State {
	return h.tracker.State()
}

func (h *HTTPHandle) CallTool(ctx context.Context, name string, argsJSON []byte) ([]byte, error) {
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

func (h *HTTPHandle) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	client := h.client
	h.client = nil
	h.mu.Unlock()
	if client != nil {
		return client.Close()
	}
	return nil
}

// connectWithRetry retries dial on the shared backoff schedule until it
// succeeds or ctx is cancelled, then returns. After that the snapshot
// is refreshed only when the server sends tools/list_changed; later
// connection errors do not trigger a reconnect.
func (h *HTTPHandle) connectWithRetry(ctx context.Context) {
	backoff := time.Duration(0)
	for {
		client, err := h.dial(ctx)
		if err != nil {
			h.tracker.Record(false)
			slog.Warn("serverhandle.http.connect_failed", "slug", h.cfg.Slug, "error", err)
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
		backoff = 0
		slog.Info("serverhandle.http.connected", "slug", h.cfg.Slug)
		return
	}
}

func (h *HTTPHandle) dial(ctx context.Context) (*mcpclient.Client, error) {
	client, err := mcpclient.NewStreamableHttpClient(h.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if err := client.Start(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start transport: %w", err)
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
			if refreshed, err := client.ListTools(ctx, mcpgo.ListToolsRequest{}); err == nil {
				h.snap.set(fromMCPTools(refreshed.Tools))
			}
		}
	})

	return client, nil
}
