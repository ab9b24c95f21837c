// ABOUTME: Resolves bearer tokens to tenant credentials and live Odoo clients.
// ABOUTME: Owns the token cache and the eviction path for revoked tokens.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaydesk/odoo-bridge/internal/odoo"
	"github.com/relaydesk/odoo-bridge/internal/store"
)

// Resolution errors. Both transports map these to their 401 shapes
// without leaking which credential field was wrong.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInactiveTenant = errors.New("tenant inactive or missing")
)

// ClientFactory constructs a RemoteClient from tenant credentials.
// Production wiring uses odoo.NewClient; tests inject fakes.
type ClientFactory func(creds odoo.Credentials) RemoteClient

// Resolver maps bearer tokens to cached Odoo clients backed by the
// credential store.
type Resolver struct {
	store   store.Store
	cache   *Cache
	factory ClientFactory
	logger  *slog.Logger
}

// NewResolver creates a resolver. A nil factory defaults to odoo.NewClient.
func NewResolver(st store.Store, cache *Cache, factory ClientFactory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = func(creds odoo.Credentials) RemoteClient {
			return odoo.NewClient(creds, logger)
		}
	}
	return &Resolver{
		store:   st,
		cache:   cache,
		factory: factory,
		logger:  logger.With("component", "session"),
	}
}

// Resolve returns the Odoo client for a bearer token, constructing and
// caching one on first use. No remote call is made here; authentication
// against Odoo happens lazily inside the client.
func (r *Resolver) Resolve(ctx context.Context, token string) (RemoteClient, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	row, err := r.store.GetActiveToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	tenant, err := r.store.GetTenant(ctx, row.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInactiveTenant
		}
		return nil, fmt.Errorf("looking up tenant: %w", err)
	}
	if !tenant.Active {
		return nil, ErrInactiveTenant
	}

	// Usage tracking is best-effort and must not block the request.
	go r.recordUse(token)

	if client, ok := r.cache.Get(token); ok {
		return client, nil
	}

	client := r.factory(odoo.Credentials{
		URL:      tenant.OdooURL,
		Database: tenant.OdooDB,
		Username: tenant.OdooUser,
		Password: tenant.OdooSecret,
	})
	r.cache.Put(token, client)

	r.logger.Debug("constructed odoo client", "tenant_id", tenant.ID)
	return client, nil
}

// Revoke deactivates a token and evicts its cached client so a warm
// session cannot outlive the revocation.
func (r *Resolver) Revoke(ctx context.Context, token string) error {
	if err := r.store.DeactivateToken(ctx, token); err != nil {
		return err
	}
	r.cache.Invalidate(token)
	r.logger.Info("token revoked")
	return nil
}

// recordUse bumps the token usage counter off the request path.
func (r *Resolver) recordUse(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.RecordTokenUse(ctx, token); err != nil {
		r.logger.Warn("recording token use failed", "error", err)
	}
}
