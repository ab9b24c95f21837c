// ABOUTME: Store interface and data types for odoo-bridge persistence.
// ABOUTME: Defines Tenant, APIToken structs and the Store interface for database operations.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateToken is returned when trying to create a token that already exists
var ErrDuplicateToken = errors.New("token already exists")

// Tenant represents a registered user and their Odoo credentials
type Tenant struct {
	ID          string
	OdooURL     string
	OdooDB      string
	OdooUser    string
	OdooSecret  string
	DisplayName string
	Email       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// APIToken represents an opaque bearer credential issued to a tenant
type APIToken struct {
	Token      string
	TenantID   string
	Active     bool
	ExpiresAt  *time.Time
	UsageCount int64
	LastUsed   *time.Time
	CreatedAt  time.Time
}

// Store defines the interface for tenant and token persistence
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	SetTenantActive(ctx context.Context, id string, active bool) error

	// Tokens
	CreateToken(ctx context.Context, token *APIToken) error
	GetActiveToken(ctx context.Context, token string) (*APIToken, error)
	DeactivateToken(ctx context.Context, token string) error

	// RecordTokenUse bumps the usage counter and last-used timestamp.
	// Best-effort: dispatch calls it off the request path.
	RecordTokenUse(ctx context.Context, token string) error

	// Close releases any resources held by the store
	Close() error
}
