// ABOUTME: Tests for the Odoo JSON-RPC client against a fake endpoint.
// ABOUTME: Covers lazy auth, idempotence, error relay, and empty-collapsing reads.

package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// fakeOdoo is a minimal Odoo JSON-RPC endpoint for tests.
type fakeOdoo struct {
	t *testing.T

	authCalls    atomic.Int64
	executeCalls atomic.Int64

	uid         int64                                              // 0 rejects authentication
	onExecute   func(model, method string, args []any) (any, *rpcError)
}

func (f *fakeOdoo) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("fake odoo received invalid JSON: %v", err)
			return
		}

		var resp rpcResponse
		resp.JSONRPC = "2.0"
		resp.ID = req.ID

		switch req.Params.Service {
		case "common":
			f.authCalls.Add(1)
			// Odoo signals bad credentials with result=false, not an error.
			if f.uid == 0 {
				resp.Result = json.RawMessage(`false`)
			} else {
				resp.Result = json.RawMessage(fmt.Sprintf("%d", f.uid))
			}
		case "object":
			f.executeCalls.Add(1)
			model, _ := req.Params.Args[3].(string)
			method, _ := req.Params.Args[4].(string)
			callArgs, _ := req.Params.Args[5].([]any)

			result, rpcErr := f.onExecute(model, method, callArgs)
			if rpcErr != nil {
				resp.Error = rpcErr
			} else {
				data, err := json.Marshal(result)
				if err != nil {
					f.t.Errorf("marshaling fake result: %v", err)
					return
				}
				resp.Result = data
			}
		default:
			f.t.Errorf("unexpected service %q", req.Params.Service)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newFakeOdoo(t *testing.T, uid int64) (*fakeOdoo, *httptest.Server) {
	t.Helper()
	fake := &fakeOdoo{
		t:   t,
		uid: uid,
		onExecute: func(model, method string, args []any) (any, *rpcError) {
			return []any{}, nil
		},
	}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return fake, srv
}

func testCreds(url string) Credentials {
	return Credentials{URL: url, Database: "testdb", Username: "admin", Password: "secret"}
}

func TestClientURLNormalization(t *testing.T) {
	t.Run("adds https scheme when missing", func(t *testing.T) {
		client := NewClient(Credentials{URL: " mycompany.odoo.com "}, nil)
		if client.rpcURL != "https://mycompany.odoo.com/jsonrpc" {
			t.Errorf("rpcURL = %q, want https scheme", client.rpcURL)
		}
	})

	t.Run("keeps explicit http scheme", func(t *testing.T) {
		client := NewClient(Credentials{URL: "http://localhost:8069/"}, nil)
		if client.rpcURL != "http://localhost:8069/jsonrpc" {
			t.Errorf("rpcURL = %q, want http scheme preserved", client.rpcURL)
		}
	})
}

func TestClientAuthenticate(t *testing.T) {
	t.Run("stores uid on success", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		client := NewClient(testCreds(srv.URL), nil)

		if err := client.Authenticate(context.Background()); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if client.uid != 7 {
			t.Errorf("uid = %d, want 7", client.uid)
		}
		if got := fake.authCalls.Load(); got != 1 {
			t.Errorf("auth calls = %d, want 1", got)
		}
	})

	t.Run("is idempotent once authenticated", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		client := NewClient(testCreds(srv.URL), nil)

		for i := 0; i < 3; i++ {
			if err := client.Authenticate(context.Background()); err != nil {
				t.Fatalf("authenticate %d: %v", i, err)
			}
		}
		if got := fake.authCalls.Load(); got != 1 {
			t.Errorf("auth calls = %d, want 1", got)
		}
	})

	t.Run("force re-runs the handshake", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		client := NewClient(testCreds(srv.URL), nil)

		if err := client.Authenticate(context.Background()); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if err := client.ForceAuthenticate(context.Background()); err != nil {
			t.Fatalf("force authenticate: %v", err)
		}
		if got := fake.authCalls.Load(); got != 2 {
			t.Errorf("auth calls = %d, want 2", got)
		}
	})

	t.Run("rejects empty uid", func(t *testing.T) {
		_, srv := newFakeOdoo(t, 0)
		client := NewClient(testCreds(srv.URL), nil)

		err := client.Authenticate(context.Background())
		if err == nil {
			t.Fatal("expected error for rejected credentials")
		}
	})

	t.Run("reports transport failure", func(t *testing.T) {
		client := NewClient(testCreds("http://127.0.0.1:1"), nil)
		if err := client.Authenticate(context.Background()); err == nil {
			t.Fatal("expected error for unreachable endpoint")
		}
	})
}

func TestClientExecute(t *testing.T) {
	t.Run("authenticates lazily before first call", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return []any{1, 2}, nil
		}
		client := NewClient(testCreds(srv.URL), nil)

		result, err := client.Execute(context.Background(), "res.partner", "search", []any{[]any{}}, nil)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if string(result) != "[1,2]" {
			t.Errorf("result = %s, want [1,2]", result)
		}
		if got := fake.authCalls.Load(); got != 1 {
			t.Errorf("auth calls = %d, want 1", got)
		}
	})

	t.Run("fails fast when authentication fails", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 0)
		client := NewClient(testCreds(srv.URL), nil)

		_, err := client.Execute(context.Background(), "res.partner", "search", nil, nil)
		if err == nil {
			t.Fatal("expected auth error")
		}
		if got := fake.executeCalls.Load(); got != 0 {
			t.Errorf("execute calls = %d, want 0 after failed auth", got)
		}
	})

	t.Run("relays remote error field", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return nil, &rpcError{Code: 200, Message: "Odoo Server Error"}
		}
		client := NewClient(testCreds(srv.URL), nil)

		_, err := client.Execute(context.Background(), "res.partner", "search", nil, nil)
		if err == nil {
			t.Fatal("expected remote error")
		}
	})

	t.Run("drops uid on access errors", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return nil, &rpcError{
				Code:    100,
				Message: "Access Denied",
				Data:    json.RawMessage(`{"name":"odoo.exceptions.AccessDenied"}`),
			}
		}
		client := NewClient(testCreds(srv.URL), nil)

		if _, err := client.Execute(context.Background(), "res.partner", "search", nil, nil); err == nil {
			t.Fatal("expected access error")
		}
		if client.uid != 0 {
			t.Errorf("uid = %d, want 0 after access error", client.uid)
		}

		// Next call should authenticate again.
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return []any{}, nil
		}
		if _, err := client.Execute(context.Background(), "res.partner", "search", nil, nil); err != nil {
			t.Fatalf("execute after recovery: %v", err)
		}
		if got := fake.authCalls.Load(); got != 2 {
			t.Errorf("auth calls = %d, want 2", got)
		}
	})
}

func TestClientSearchRead(t *testing.T) {
	t.Run("composes search then read", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			switch method {
			case "search":
				return []int64{4, 5}, nil
			case "read":
				return []map[string]any{
					{"id": 4, "name": "Alpha"},
					{"id": 5, "name": "Beta"},
				}, nil
			default:
				return nil, &rpcError{Message: "unexpected method " + method}
			}
		}
		client := NewClient(testCreds(srv.URL), nil)

		records := client.SearchRead(context.Background(), "res.partner", []any{}, []string{"name"}, 5)
		if len(records) != 2 {
			t.Fatalf("records = %d, want 2", len(records))
		}
		if records[0]["name"] != "Alpha" {
			t.Errorf("first record name = %v, want Alpha", records[0]["name"])
		}
	})

	t.Run("collapses errors into empty result", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return nil, &rpcError{Message: "boom"}
		}
		client := NewClient(testCreds(srv.URL), nil)

		records := client.SearchRead(context.Background(), "res.partner", []any{}, []string{"name"}, 5)
		if records != nil {
			t.Errorf("records = %v, want nil on error", records)
		}
	})

	t.Run("returns empty when search matches nothing", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		readCalled := false
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			if method == "read" {
				readCalled = true
			}
			return []int64{}, nil
		}
		client := NewClient(testCreds(srv.URL), nil)

		records := client.SearchRead(context.Background(), "res.partner", []any{}, nil, 0)
		if records != nil {
			t.Errorf("records = %v, want nil", records)
		}
		if readCalled {
			t.Error("read should not run when search yields no ids")
		}
	})
}

func TestClientReadOne(t *testing.T) {
	t.Run("returns first record", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return []map[string]any{{"id": 9, "name": "Gamma"}}, nil
		}
		client := NewClient(testCreds(srv.URL), nil)

		rec := client.ReadOne(context.Background(), "res.partner", 9, []string{"name"})
		if rec == nil || rec["name"] != "Gamma" {
			t.Errorf("record = %v, want name Gamma", rec)
		}
	})

	t.Run("collapses errors into nil", func(t *testing.T) {
		fake, srv := newFakeOdoo(t, 7)
		fake.onExecute = func(model, method string, args []any) (any, *rpcError) {
			return nil, &rpcError{Message: "boom"}
		}
		client := NewClient(testCreds(srv.URL), nil)

		if rec := client.ReadOne(context.Background(), "res.partner", 9, nil); rec != nil {
			t.Errorf("record = %v, want nil on error", rec)
		}
	})
}

func TestClientTestConnection(t *testing.T) {
	t.Run("true on success", func(t *testing.T) {
		_, srv := newFakeOdoo(t, 7)
		client := NewClient(testCreds(srv.URL), nil)
		if !client.TestConnection(context.Background()) {
			t.Error("expected successful connection test")
		}
	})

	t.Run("false on auth failure", func(t *testing.T) {
		_, srv := newFakeOdoo(t, 0)
		client := NewClient(testCreds(srv.URL), nil)
		if client.TestConnection(context.Background()) {
			t.Error("expected failed connection test")
		}
	})
}
