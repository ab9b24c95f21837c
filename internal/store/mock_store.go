// ABOUTME: In-memory mock implementation of the Store interface for testing
// ABOUTME: Thread-safe map-backed storage with the same error semantics as SQLite

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for tests.
type MockStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
	tokens  map[string]*APIToken
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		tenants: make(map[string]*Tenant),
		tokens:  make(map[string]*APIToken),
	}
}

// CreateTenant stores a copy of the tenant.
func (m *MockStore) CreateTenant(_ context.Context, tenant *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *tenant
	m.tenants[tenant.ID] = &copied
	return nil
}

// GetTenant returns a copy of the tenant or ErrNotFound.
func (m *MockStore) GetTenant(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *tenant
	return &copied, nil
}

// SetTenantActive flips the active flag.
func (m *MockStore) SetTenantActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return ErrNotFound
	}
	tenant.Active = active
	tenant.UpdatedAt = time.Now()
	return nil
}

// CreateToken stores a copy of the token.
func (m *MockStore) CreateToken(_ context.Context, token *APIToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[token.Token]; exists {
		return ErrDuplicateToken
	}
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

// GetActiveToken returns an active, unexpired token or ErrNotFound.
func (m *MockStore) GetActiveToken(_ context.Context, tokenStr string) (*APIToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[tokenStr]
	if !ok || !token.Active {
		return nil, ErrNotFound
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

// DeactivateToken marks a token inactive.
func (m *MockStore) DeactivateToken(_ context.Context, tokenStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[tokenStr]
	if !ok {
		return ErrNotFound
	}
	token.Active = false
	return nil
}

// RecordTokenUse bumps the usage counter.
func (m *MockStore) RecordTokenUse(_ context.Context, tokenStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[tokenStr]
	if !ok {
		return ErrNotFound
	}
	token.UsageCount++
	now := time.Now()
	token.LastUsed = &now
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
