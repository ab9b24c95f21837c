// ABOUTME: REST handlers for tenant configuration and the execute mirror.
// ABOUTME: Shares token resolution and argument translation with the MCP transport.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relaydesk/odoo-bridge/internal/auth"
	"github.com/relaydesk/odoo-bridge/internal/metrics"
	"github.com/relaydesk/odoo-bridge/internal/odoo"
	"github.com/relaydesk/odoo-bridge/internal/session"
	"github.com/relaydesk/odoo-bridge/internal/store"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// TokenResolver resolves bearer tokens to Odoo clients.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (session.RemoteClient, error)
}

// ClientFactory constructs a client for connection probing during
// configuration. Production wiring uses odoo.NewClient.
type ClientFactory func(creds odoo.Credentials) session.RemoteClient

// ConfigureRequest is the JSON request body for POST /api/config and
// POST /api/test-connection.
type ConfigureRequest struct {
	OdooURL      string `json:"odoo_url"`
	OdooDB       string `json:"odoo_db"`
	OdooUsername string `json:"odoo_username"`
	OdooPassword string `json:"odoo_password"`
	DisplayName  string `json:"display_name,omitempty"`
	Email        string `json:"email,omitempty"`
}

// ExecuteResponse is the uniform JSON response shape for the REST surface.
type ExecuteResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ConfigureResponse is the JSON response for POST /api/config.
type ConfigureResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	APIToken string `json:"api_token,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	MCPURL   string `json:"mcp_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TestConnectionResponse is the JSON response for POST /api/test-connection.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Config holds configuration for the REST server.
type Config struct {
	Store    store.Store
	Resolver TokenResolver
	Factory  ClientFactory
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// PublicURL is the externally reachable base URL, used to build the
	// MCP URL returned from /api/config.
	PublicURL string
}

// Server implements the REST endpoints.
type Server struct {
	store     store.Store
	resolver  TokenResolver
	factory   ClientFactory
	metrics   *metrics.Metrics
	logger    *slog.Logger
	publicURL string
}

// NewServer creates a REST server. A nil factory defaults to odoo.NewClient.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	factory := cfg.Factory
	if factory == nil {
		factory = func(creds odoo.Credentials) session.RemoteClient {
			return odoo.NewClient(creds, logger)
		}
	}

	return &Server{
		store:     cfg.Store,
		resolver:  cfg.Resolver,
		factory:   factory,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "api"),
		publicURL: cfg.PublicURL,
	}, nil
}

// RegisterRoutes registers the REST endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/odoo/execute", s.handleExecute)
	mux.HandleFunc("/api/config", s.handleConfigure)
	mux.HandleFunc("/api/test-connection", s.handleTestConnection)
	mux.HandleFunc("/health", s.handleHealth)
}

// handleExecute handles POST /api/odoo/execute.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	token, errMsg := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		s.countAuthFailure()
		s.writeJSON(w, http.StatusUnauthorized, ExecuteResponse{Success: false, Error: errMsg})
		return
	}

	client, err := s.resolver.Resolve(r.Context(), token)
	if err != nil {
		s.countAuthFailure()
		switch {
		case errors.Is(err, session.ErrInvalidToken):
			s.writeJSON(w, http.StatusUnauthorized, ExecuteResponse{Success: false, Error: "invalid token"})
		case errors.Is(err, session.ErrInactiveTenant):
			s.writeJSON(w, http.StatusUnauthorized, ExecuteResponse{Success: false, Error: "user inactive"})
		default:
			s.logger.Error("token resolution failed", "error", err)
			s.writeJSON(w, http.StatusInternalServerError, ExecuteResponse{Success: false, Error: "internal error"})
		}
		return
	}

	var req odoo.CallRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ExecuteResponse{Success: false, Error: "invalid JSON body"})
		return
	}

	args, kwargs, err := odoo.BuildArgs(req)
	if err != nil {
		s.countCall("error")
		s.writeJSON(w, http.StatusOK, ExecuteResponse{Success: false, Error: err.Error()})
		return
	}

	result, err := client.Execute(r.Context(), req.Model, req.Method, args, kwargs)
	if err != nil {
		s.countCall("error")
		s.writeJSON(w, http.StatusOK, ExecuteResponse{Success: false, Error: err.Error()})
		return
	}

	s.countCall("ok")
	s.writeJSON(w, http.StatusOK, ExecuteResponse{Success: true, Data: result})
}

// handleConfigure handles POST /api/config. The connection is verified
// against Odoo before anything is persisted.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConfigureRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ConfigureResponse{Success: false, Error: "invalid JSON body"})
		return
	}
	if req.OdooURL == "" || req.OdooDB == "" || req.OdooUsername == "" || req.OdooPassword == "" {
		s.writeJSON(w, http.StatusBadRequest, ConfigureResponse{
			Success: false,
			Error:   "odoo_url, odoo_db, odoo_username and odoo_password are required",
		})
		return
	}

	s.logger.Info("configuring odoo instance", "odoo_url", req.OdooURL)

	probe := s.factory(odoo.Credentials{
		URL:      req.OdooURL,
		Database: req.OdooDB,
		Username: req.OdooUsername,
		Password: req.OdooPassword,
	})
	if !probe.TestConnection(r.Context()) {
		s.writeJSON(w, http.StatusBadRequest, ConfigureResponse{
			Success: false,
			Error:   "could not connect to Odoo; check your credentials",
		})
		return
	}

	token, err := auth.GenerateToken()
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ConfigureResponse{Success: false, Error: "internal error"})
		return
	}

	now := time.Now()
	tenant := &store.Tenant{
		ID:          uuid.New().String(),
		OdooURL:     req.OdooURL,
		OdooDB:      req.OdooDB,
		OdooUser:    req.OdooUsername,
		OdooSecret:  req.OdooPassword,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		s.logger.Error("creating tenant failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ConfigureResponse{Success: false, Error: "internal error"})
		return
	}

	if err := s.store.CreateToken(r.Context(), &store.APIToken{
		Token:     token,
		TenantID:  tenant.ID,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		s.logger.Error("creating token failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, ConfigureResponse{Success: false, Error: "internal error"})
		return
	}

	s.logger.Info("tenant configured", "tenant_id", tenant.ID)

	s.writeJSON(w, http.StatusOK, ConfigureResponse{
		Success:  true,
		Message:  "Odoo configuration created",
		APIToken: token,
		UserID:   tenant.ID,
		MCPURL:   s.publicURL + "/mcp",
	})
}

// handleTestConnection handles POST /api/test-connection. Never persists.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConfigureRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, TestConnectionResponse{Success: false, Message: "invalid JSON body"})
		return
	}

	probe := s.factory(odoo.Credentials{
		URL:      req.OdooURL,
		Database: req.OdooDB,
		Username: req.OdooUsername,
		Password: req.OdooPassword,
	})

	if probe.TestConnection(r.Context()) {
		s.writeJSON(w, http.StatusOK, TestConnectionResponse{Success: true, Message: "Odoo connection successful"})
		return
	}
	s.writeJSON(w, http.StatusOK, TestConnectionResponse{
		Success: false,
		Message: "could not connect to Odoo; check your credentials",
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":       "healthy",
		"mcp_endpoint": "/mcp",
	})
}

// decodeBody decodes a size-limited JSON request body into dst.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) countCall(outcome string) {
	if s.metrics != nil {
		s.metrics.ProxiedCalls.WithLabelValues("rest", outcome).Inc()
	}
}

func (s *Server) countAuthFailure() {
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues("rest").Inc()
	}
}
