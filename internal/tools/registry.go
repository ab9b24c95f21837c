// ABOUTME: Tool registry mapping MCP tool names to handlers and schemas.
// ABOUTME: Tools receive the resolved Odoo client per-request, never hold state.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/relaydesk/odoo-bridge/internal/session"
)

// ErrToolNotFound is returned when a tools/call names an unknown tool.
var ErrToolNotFound = errors.New("tool not found")

// Handler executes one tool call against the resolved Odoo client and
// returns the text payload for the MCP content block.
type Handler func(ctx context.Context, client session.RemoteClient, args json.RawMessage) (string, error)

// Tool is one entry in the registry.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Run         Handler
}

// Registry stores and dispatches tools by name.
type Registry struct {
	logger *slog.Logger
	tools  map[string]Tool
	order  []string
}

// NewRegistry creates a registry with the full tool set.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger: logger.With("component", "tools"),
		tools:  make(map[string]Tool),
	}
	for _, t := range defaultTools() {
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	list := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Call invokes a named tool with the resolved client.
func (r *Registry) Call(ctx context.Context, client session.RemoteClient, name string, args json.RawMessage) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", ErrToolNotFound
	}

	r.logger.Debug("tool call", "tool", name)
	return tool.Run(ctx, client, args)
}
