// ABOUTME: End-to-end test: MCP request through the resolver and a real
// ABOUTME: Odoo client against a fake JSON-RPC endpoint.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/relaydesk/odoo-bridge/internal/session"
	"github.com/relaydesk/odoo-bridge/internal/store"
)

// fakeOdooHandler answers common/authenticate with uid 7 and
// object/execute_kw with one partner record.
func fakeOdooHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64 `json:"id"`
			Params struct {
				Service string `json:"service"`
				Args    []any  `json:"args"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("fake odoo received invalid JSON: %v", err)
			return
		}

		var result any
		switch req.Params.Service {
		case "common":
			result = 7
		case "object":
			result = []map[string]any{{"id": 1, "name": "Acme"}}
		default:
			t.Errorf("unexpected service %q", req.Params.Service)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}
}

func TestEndToEndToolCall(t *testing.T) {
	odooSrv := httptest.NewServer(fakeOdooHandler(t))
	defer odooSrv.Close()

	st := store.NewMockStore()
	seedCtx := context.Background()
	if err := st.CreateTenant(seedCtx, &store.Tenant{
		ID:         "tenant-1",
		OdooURL:    odooSrv.URL,
		OdooDB:     "demo",
		OdooUser:   "admin",
		OdooSecret: "secret",
		Active:     true,
		CreatedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("seeding tenant: %v", err)
	}
	if err := st.CreateToken(seedCtx, &store.APIToken{
		Token:     "tok-e2e",
		TenantID:  "tenant-1",
		Active:    true,
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seeding token: %v", err)
	}

	resolver := session.NewResolver(st, session.NewCache(), nil, nil)
	srv := newTestServer(t, resolver)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{` +
		`"name":"execute_odoo_method",` +
		`"arguments":{"model":"res.partner","method":"search_read","fields":"name"}}}`

	_, resp := postMCP(t, srv, body, bearer("tok-e2e"))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result MCPCallToolResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool reported error: %+v", result.Content)
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, "Acme") {
		t.Errorf("content = %+v, want Acme record text", result.Content)
	}
}
