// ABOUTME: MCP-compatible HTTP server exposing the Odoo tool set.
// ABOUTME: Implements JSON-RPC 2.0 over POST /mcp with bearer token auth.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/relaydesk/odoo-bridge/internal/auth"
	"github.com/relaydesk/odoo-bridge/internal/metrics"
	"github.com/relaydesk/odoo-bridge/internal/odoo"
	"github.com/relaydesk/odoo-bridge/internal/session"
	"github.com/relaydesk/odoo-bridge/internal/tools"
)

// protocolVersion is the MCP protocol revision we advertise.
const protocolVersion = "2024-11-05"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TokenResolver resolves bearer tokens to Odoo clients.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (session.RemoteClient, error)
}

// Config holds configuration for the MCP server.
type Config struct {
	Registry      *tools.Registry
	Resolver      TokenResolver
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
}

// Server implements the MCP endpoint for external AI agents.
type Server struct {
	registry *tools.Registry
	resolver TokenResolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	name     string
	version  string
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.ServerName
	if name == "" {
		name = "odoo-bridge"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	return &Server{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "mcp"),
		name:     name,
		version:  version,
	}, nil
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
// Both /mcp and /mcp/ are served so trailing-slash clients work.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/mcp/", s.handleMCP)
}

// handleMCP is the single MCP endpoint.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleGet(w, r)
	default:
		w.Header().Set("Allow", "POST, GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleGet returns static capability metadata so clients can probe the
// endpoint without a full JSON-RPC handshake.
func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"result": map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
			"message": "MCP server is running. Use POST requests for full functionality.",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode capability metadata", "error", err)
	}
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	// Notifications get accepted with no body.
	if len(req.ID) == 0 || string(req.ID) == "null" {
		if strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Debug("accepted MCP notification", "method", req.Method)
		} else {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.logger.Debug("MCP request", "method", req.Method)

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req)
	case "tools/list":
		s.handleToolsList(w, req)
	case "tools/call":
		s.handleToolsCall(w, r, req)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleInitialize handles the MCP initialize handshake.
func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsList handles tools/list requests.
func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	list := s.registry.List()

	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(list)),
	}
	for i, tool := range list {
		result.Tools[i] = MCPToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	s.logger.Debug("tools/list", "count", len(list))
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsCall handles tools/call requests. This is the only method
// that requires authorization: the bearer token is resolved to the
// tenant's Odoo client before the tool runs.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}

	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	token, errMsg := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		s.countAuthFailure()
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "missing or invalid authorization", nil)
		return
	}

	client, err := s.resolver.Resolve(r.Context(), token)
	if err != nil {
		s.countAuthFailure()
		switch {
		case errors.Is(err, session.ErrInvalidToken):
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid token", nil)
		case errors.Is(err, session.ErrInactiveTenant):
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "user inactive", nil)
		default:
			s.logger.Error("token resolution failed", "error", err)
			s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "internal error", nil)
		}
		return
	}

	requestID := uuid.New().String()
	s.logger.Debug("tools/call", "tool_name", params.Name, "request_id", requestID)

	text, err := s.registry.Call(r.Context(), client, params.Name, params.Arguments)
	if err != nil {
		s.handleToolError(w, req.ID, params.Name, requestID, err)
		return
	}

	s.countCall("ok")
	s.sendJSONRPCResult(w, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: text}},
	})
}

// handleToolError maps tool failures to their JSON-RPC shapes.
func (s *Server) handleToolError(w http.ResponseWriter, id json.RawMessage, toolName, requestID string, err error) {
	s.logger.Warn("tool execution failed",
		"tool_name", toolName,
		"request_id", requestID,
		"error", err,
	)

	var validationErr *odoo.ValidationError
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		s.countCall("error")
		s.sendJSONRPCError(w, id, JSONRPCMethodNotFound, "unknown tool: "+toolName, nil)
	case errors.As(err, &validationErr):
		s.countCall("error")
		s.sendJSONRPCError(w, id, JSONRPCInvalidParams, validationErr.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.countCall("error")
		s.sendJSONRPCError(w, id, JSONRPCInternalError, "tool execution timed out", nil)
	default:
		// Remote-side failures are relayed as tool output, not protocol
		// errors, so clients see the Odoo message.
		s.countCall("error")
		s.sendJSONRPCResult(w, id, MCPCallToolResult{
			Content: []MCPContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}
}

func (s *Server) countCall(outcome string) {
	if s.metrics != nil {
		s.metrics.ProxiedCalls.WithLabelValues("mcp", outcome).Inc()
	}
}

func (s *Server) countAuthFailure() {
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues("mcp").Inc()
	}
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
