// Package serverhandle adapts remote MCP servers — spoken over STDIO
// or Streamable HTTP — into the provider.Provider capability set, with
// health tracking and automatic restart/reconnect.
package serverhandle

import (
	"encoding/json"
	"sync"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/porter/internal/provider"
)

// toolsSnapshot is the copy-on-write cache each handle keeps of its
// backend's current tool list. Readers swap in the current pointer
// without blocking on the transport.
type toolsSnapshot struct {
	mu    sync.RWMutex
	tools []provider.Tool
}

func (s *toolsSnapshot) set(tools []provider.Tool) {
	s.mu.Lock()
	s.tools = tools
	s.mu.Unlock()
}

func (s *toolsSnapshot) clear() {
	s.set(nil)
}

func (s *toolsSnapshot) get() []provider.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]provider.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// fromMCPTools converts the wire mcp.Tool list into provider.Tool,
// capturing whatever schema the remote server advertised.
func fromMCPTools(tools []mcpgo.Tool) []provider.Tool {
	out := make([]provider.Tool, 0, len(tools))
	for _, t := range tools {
		schema := map[string]any{"type": "object"}
		if len(t.RawInputSchema) > 0 {
			var parsed map[string]any
			if err := json.Unmarshal(t.RawInputSchema, &parsed); err == nil {
				schema = parsed
			}
		} else {
			schema = map[string]any{
				"type":       "object",
				"properties": t.InputSchema.Properties,
				"required":   t.InputSchema.Required,
			}
		}
		out = append(out, provider.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return out
}
