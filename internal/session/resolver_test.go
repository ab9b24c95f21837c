// ABOUTME: Tests for token-to-client resolution and revocation eviction.
// ABOUTME: Uses the mock store and a fake client factory; no network involved.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relaydesk/odoo-bridge/internal/odoo"
	"github.com/relaydesk/odoo-bridge/internal/store"
)

// fakeClient satisfies RemoteClient without touching the network.
type fakeClient struct {
	creds odoo.Credentials
}

func (f *fakeClient) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (f *fakeClient) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit int) []map[string]any {
	return nil
}

func (f *fakeClient) ReadOne(ctx context.Context, model string, id int64, fields []string) map[string]any {
	return nil
}

func (f *fakeClient) TestConnection(ctx context.Context) bool { return true }

type fixture struct {
	store     *store.MockStore
	cache     *Cache
	resolver  *Resolver
	mu        sync.Mutex
	factories int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMockStore(),
		cache: NewCache(),
	}
	factory := func(creds odoo.Credentials) RemoteClient {
		f.mu.Lock()
		f.factories++
		f.mu.Unlock()
		return &fakeClient{creds: creds}
	}
	f.resolver = NewResolver(f.store, f.cache, factory, nil)
	return f
}

func (f *fixture) factoryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.factories
}

func (f *fixture) seed(t *testing.T, token string, active bool) {
	t.Helper()
	ctx := context.Background()
	err := f.store.CreateTenant(ctx, &store.Tenant{
		ID:         "tenant-1",
		OdooURL:    "https://demo.odoo.com",
		OdooDB:     "demo",
		OdooUser:   "admin",
		OdooSecret: "secret",
		Active:     active,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seeding tenant: %v", err)
	}
	err = f.store.CreateToken(ctx, &store.APIToken{
		Token:     token,
		TenantID:  "tenant-1",
		Active:    true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seeding token: %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Run("builds and caches a client", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tok-abc", true)

		client, err := f.resolver.Resolve(context.Background(), "tok-abc")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}

		again, err := f.resolver.Resolve(context.Background(), "tok-abc")
		if err != nil {
			t.Fatalf("second resolve: %v", err)
		}
		if client != again {
			t.Error("expected the cached client on second resolve")
		}
		if got := f.factoryCalls(); got != 1 {
			t.Errorf("factory calls = %d, want 1", got)
		}
	})

	t.Run("factory receives tenant credentials", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tok-abc", true)

		client, err := f.resolver.Resolve(context.Background(), "tok-abc")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		fc := client.(*fakeClient)
		if fc.creds.URL != "https://demo.odoo.com" || fc.creds.Database != "demo" {
			t.Errorf("factory credentials = %+v", fc.creds)
		}
	})

	t.Run("rejects empty token", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.resolver.Resolve(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("rejects unknown token without building a client", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.resolver.Resolve(context.Background(), "nope"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
		if got := f.factoryCalls(); got != 0 {
			t.Errorf("factory calls = %d, want 0", got)
		}
	})

	t.Run("rejects inactive tenant", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tok-abc", false)

		if _, err := f.resolver.Resolve(context.Background(), "tok-abc"); !errors.Is(err, ErrInactiveTenant) {
			t.Errorf("err = %v, want ErrInactiveTenant", err)
		}
		if got := f.factoryCalls(); got != 0 {
			t.Errorf("factory calls = %d, want 0", got)
		}
	})

	t.Run("deactivated token stops resolving even when cached", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tok-abc", true)

		if _, err := f.resolver.Resolve(context.Background(), "tok-abc"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if err := f.store.DeactivateToken(context.Background(), "tok-abc"); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if _, err := f.resolver.Resolve(context.Background(), "tok-abc"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken after deactivation", err)
		}
	})
}

func TestRevoke(t *testing.T) {
	t.Run("deactivates and evicts", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "tok-abc", true)

		if _, err := f.resolver.Resolve(context.Background(), "tok-abc"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if f.cache.Len() != 1 {
			t.Fatalf("cache len = %d, want 1", f.cache.Len())
		}

		if err := f.resolver.Revoke(context.Background(), "tok-abc"); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if f.cache.Len() != 0 {
			t.Errorf("cache len = %d, want 0 after revoke", f.cache.Len())
		}
		if _, err := f.resolver.Resolve(context.Background(), "tok-abc"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken after revoke", err)
		}
	})

	t.Run("unknown token reports not found", func(t *testing.T) {
		f := newFixture(t)
		if err := f.resolver.Revoke(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestCacheConcurrency(t *testing.T) {
	cache := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Put("tok", &fakeClient{})
				cache.Get("tok")
				cache.Invalidate("tok")
			}
		}()
	}
	wg.Wait()
}
