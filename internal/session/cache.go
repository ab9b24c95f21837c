// ABOUTME: Concurrency-safe cache of API token to Odoo client instances.
// ABOUTME: Avoids re-authenticating against Odoo on every proxied request.

package session

import (
	"context"
	"encoding/json"
	"sync"
)

// RemoteClient is the surface of an Odoo client the dispatch layer needs.
// *odoo.Client implements it; tests substitute fakes.
type RemoteClient interface {
	Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)
	SearchRead(ctx context.Context, model string, domain []any, fields []string, limit int) []map[string]any
	ReadOne(ctx context.Context, model string, id int64, fields []string) map[string]any
	TestConnection(ctx context.Context) bool
}

// Cache holds one RemoteClient per active API token.
type Cache struct {
	mu      sync.RWMutex
	clients map[string]RemoteClient
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{clients: make(map[string]RemoteClient)}
}

// Get returns the cached client for a token, if any.
func (c *Cache) Get(token string) (RemoteClient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, ok := c.clients[token]
	return client, ok
}

// Put caches a client under a token. Last write wins on races.
func (c *Cache) Put(token string, client RemoteClient) {
	c.mu.Lock()
	c.clients[token] = client
	c.mu.Unlock()
}

// Invalidate evicts a token's cached client.
func (c *Cache) Invalidate(token string) {
	c.mu.Lock()
	delete(c.clients, token)
	c.mu.Unlock()
}

// Len returns the number of cached clients (for monitoring).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
