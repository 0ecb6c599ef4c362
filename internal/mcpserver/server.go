// Package mcpserver bridges a *registry.Registry to Porter's own
// inbound MCP endpoint, built on mark3labs/mcp-go's server package.
// Registry swaps are reflected here with a batch AddTools/DeleteTools
// diff so the library emits tools/list_changed automatically.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/porter/internal/registry"
)

const serverName = "porter"
const serverVersion = "0.1.0"

// Server owns the live *server.MCPServer and the set of tool names
// currently registered on it, so Sync can compute a minimal diff.
type Server struct {
	mcp *server.MCPServer

	mu      sync.Mutex
	current map[string]bool
}

// New constructs an empty Porter MCP server with tool list-changed
// notifications enabled.
func New() *Server {
	return &Server{
		mcp:     server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true)),
		current: make(map[string]bool),
	}
}

// MCPServer exposes the underlying *server.MCPServer for transport
// wiring (stdio or streamable HTTP) in cmd/.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Sync reconciles the live tool set against reg's current aggregation:
// tools no longer present are removed, new ones are added, both as
// single batch calls so exactly one list_changed notification is sent
// per direction instead of one per tool.
func (s *Server) Sync(reg *registry.Registry) {
	tools := reg.Tools()

	wanted := make(map[string]registry.NamespacedTool, len(tools))
	for _, t := range tools {
		wanted[t.Name] = t
	}

	s.mu.Lock()
	var toRemove []string
	for name := range s.current {
		if _, ok := wanted[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}

	var toAdd []server.ServerTool
	for name, t := range wanted {
		if !s.current[name] {
			toAdd = append(toAdd, s.buildServerTool(reg, t))
		}
	}

	for _, name := range toRemove {
		delete(s.current, name)
	}
	for _, t := range toAdd {
		s.current[t.Tool.Name] = true
	}
	s.mu.Unlock()

	if len(toRemove) > 0 {
		slog.Info("mcpserver.tools.removed", "count", len(toRemove))
		s.mcp.DeleteTools(toRemove...)
	}
	if len(toAdd) > 0 {
		slog.Info("mcpserver.tools.added", "count", len(toAdd))
		s.mcp.AddTools(toAdd...)
	}
}

func (s *Server) buildServerTool(reg *registry.Registry, t registry.NamespacedTool) server.ServerTool {
	rawSchema, err := json.Marshal(t.InputSchema)
	if err != nil {
		rawSchema = []byte(`{"type":"object"}`)
	}

	tool := mcp.Tool{
		Name:           t.Name,
		Description:    t.Description,
		RawInputSchema: rawSchema,
	}

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.NewString()
		args := req.GetArguments()
		argsJSON, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling arguments: %v", err)), nil
		}

		slog.Info("mcpserver.tool.call", "call_id", callID, "tool", t.Name)
		resultJSON, callErr := reg.CallTool(ctx, t.Name, argsJSON)
		if callErr != nil {
			slog.Warn("mcpserver.tool.call_failed", "call_id", callID, "tool", t.Name, "error", callErr)
			return mcp.NewToolResultError(callErr.Error()), nil
		}
		slog.Info("mcpserver.tool.call_done", "call_id", callID, "tool", t.Name)
		return mcp.NewToolResultText(string(resultJSON)), nil
	}

	return server.ServerTool{Tool: tool, Handler: handler}
}
