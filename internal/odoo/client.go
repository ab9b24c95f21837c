// ABOUTME: JSON-RPC client for a single tenant's Odoo instance.
// ABOUTME: Handles lazy authentication, execute_kw calls, and read conveniences.

package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrAuthFailed is returned when Odoo rejects the tenant's credentials.
var ErrAuthFailed = errors.New("odoo authentication failed")

// MaxResponseBodySize is the maximum allowed size for Odoo responses (8MB).
const MaxResponseBodySize = 8 << 20

// Credentials identifies one tenant's Odoo instance.
type Credentials struct {
	URL      string
	Database string
	Username string
	Password string
}

// Client is a JSON-RPC client bound to one tenant's Odoo instance.
// It authenticates lazily on the first Execute call and caches the
// resulting uid for its lifetime.
type Client struct {
	creds  Credentials
	rpcURL string
	http   *http.Client
	logger *slog.Logger

	mu  sync.Mutex
	uid int64 // 0 means not authenticated
}

// NewClient creates a client for the given credentials. An endpoint URL
// without an explicit scheme is assumed to be HTTPS.
func NewClient(creds Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	url := strings.TrimSpace(creds.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	url = strings.TrimRight(url, "/")
	creds.URL = url

	return &Client{
		creds:  creds,
		rpcURL: url + "/jsonrpc",
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "odoo", "endpoint", url),
	}
}

// rpcRequest is the JSON-RPC 2.0 envelope Odoo expects.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

// rpcParams addresses a service method on the Odoo side.
type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the error object Odoo returns on failed calls.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		var data struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Data, &data); err == nil && data.Message != "" {
			return fmt.Sprintf("%s: %s", e.Message, data.Message)
		}
	}
	return e.Message
}

// isAccessError reports whether the remote error indicates the cached
// session is no longer valid.
func (e *rpcError) isAccessError() bool {
	var data struct {
		Name string `json:"name"`
	}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err == nil {
			if strings.Contains(data.Name, "AccessDenied") || strings.Contains(data.Name, "SessionExpired") {
				return true
			}
		}
	}
	return false
}

// call posts a single JSON-RPC request and decodes the response envelope.
func (c *Client) call(ctx context.Context, id int64, params rpcParams) (*rpcResponse, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      id,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", c.rpcURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &rpcResp, nil
}

// Authenticate performs the common/authenticate handshake and caches the
// returned uid. It is a no-op if the client is already authenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uid != 0 {
		return nil
	}
	return c.authenticateLocked(ctx)
}

// ForceAuthenticate discards any cached uid and re-runs the handshake.
func (c *Client) ForceAuthenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.uid = 0
	return c.authenticateLocked(ctx)
}

// authenticateLocked runs the handshake. Callers must hold c.mu.
func (c *Client) authenticateLocked(ctx context.Context) error {
	resp, err := c.call(ctx, 1, rpcParams{
		Service: "common",
		Method:  "authenticate",
		Args:    []any{c.creds.Database, c.creds.Username, c.creds.Password, map[string]any{}},
	})
	if err != nil {
		c.logger.Error("authentication request failed", "error", err)
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	if resp.Error != nil {
		c.logger.Error("authentication rejected", "error", resp.Error.Message)
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.Error.Error())
	}

	// Odoo returns false (not an error) for bad credentials, so a missing
	// or zero uid is a rejection too.
	var uid int64
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &uid); err != nil {
			c.logger.Error("authentication returned non-numeric uid", "result", string(resp.Result))
			return fmt.Errorf("%w: unexpected result %s", ErrAuthFailed, resp.Result)
		}
	}
	if uid == 0 {
		c.logger.Error("authentication returned empty uid", "username", c.creds.Username)
		return fmt.Errorf("%w: invalid credentials", ErrAuthFailed)
	}

	c.uid = uid
	c.logger.Info("authenticated with Odoo", "username", c.creds.Username, "uid", uid)
	return nil
}

// Execute runs model.method on the remote instance via execute_kw,
// authenticating first if needed. The raw JSON result is returned on
// success; all failure modes (transport, malformed response, remote
// error field) come back as an error.
func (c *Client) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	resp, err := c.call(ctx, 2, rpcParams{
		Service: "object",
		Method:  "execute_kw",
		Args:    []any{c.creds.Database, uid, c.creds.Password, model, method, args, kwargs},
	})
	if err != nil {
		c.logger.Error("execute failed", "model", model, "method", method, "error", err)
		return nil, err
	}

	if resp.Error != nil {
		// A rejected session means the next call should authenticate again.
		if resp.Error.isAccessError() {
			c.mu.Lock()
			c.uid = 0
			c.mu.Unlock()
		}
		c.logger.Error("execute rejected", "model", model, "method", method, "error", resp.Error.Message)
		return nil, fmt.Errorf("odoo error: %s", resp.Error.Error())
	}

	c.logger.Debug("executed odoo method", "model", model, "method", method)
	return resp.Result, nil
}

// SearchRead searches for records matching domain and reads the given
// fields from them. Errors from either underlying call collapse into an
// empty result; callers that need to distinguish failures use Execute.
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit int) []map[string]any {
	if domain == nil {
		domain = []any{}
	}

	kwargs := map[string]any{}
	if limit > 0 {
		kwargs["limit"] = limit
	}

	searchResult, err := c.Execute(ctx, model, "search", []any{domain}, kwargs)
	if err != nil {
		c.logger.Warn("search failed", "model", model, "error", err)
		return nil
	}

	var ids []int64
	if err := json.Unmarshal(searchResult, &ids); err != nil || len(ids) == 0 {
		return nil
	}

	readArgs := []any{ids}
	if len(fields) > 0 {
		readArgs = append(readArgs, fields)
	}

	readResult, err := c.Execute(ctx, model, "read", readArgs, nil)
	if err != nil {
		c.logger.Warn("read failed", "model", model, "error", err)
		return nil
	}

	var records []map[string]any
	if err := json.Unmarshal(readResult, &records); err != nil {
		return nil
	}
	return records
}

// ReadOne reads the given fields of a single record. Like SearchRead it
// returns nil on any failure rather than an error.
func (c *Client) ReadOne(ctx context.Context, model string, id int64, fields []string) map[string]any {
	result, err := c.Execute(ctx, model, "read", []any{id, fields}, nil)
	if err != nil {
		c.logger.Warn("read failed", "model", model, "id", id, "error", err)
		return nil
	}

	var records []map[string]any
	if err := json.Unmarshal(result, &records); err != nil || len(records) == 0 {
		return nil
	}
	return records[0]
}

// TestConnection verifies the credentials with a bounded read against
// res.users. True iff the round trip succeeded.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.Execute(ctx, "res.users", "search_read", []any{[]any{}, []string{"id", "name"}, 0, 1}, nil)
	return err == nil
}
