// Package session maps API tokens to live Odoo clients.
//
// # Resolution
//
// Resolver.Resolve turns a bearer token into a RemoteClient:
//
//  1. Look up an active token row by exact string match.
//  2. Look up the owning tenant and check it is active.
//  3. Return the cached client for this token if one exists.
//  4. Otherwise construct a client from the tenant's credentials,
//     cache it under the token, and return it.
//
// The cache is keyed by token rather than tenant so that revoking a
// token also invalidates its cached client. Concurrent requests with the
// same token may race to construct a client; the last insert wins, which
// is harmless because clients are stateless until first authentication.
//
// # Invalidation
//
// Revoke deactivates a token in the store and evicts its cached client
// in the same call, so a revoked token cannot keep using a warm session.
package session
