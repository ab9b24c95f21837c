// Package store provides persistent storage for the bridge using SQLite.
//
// # Data Models
//
//   - Tenant: a registered user's Odoo credentials (URL, database,
//     username, secret) plus optional display name/email and an active
//     flag. Tenants are never hard-deleted, only deactivated.
//   - APIToken: an opaque bearer credential owned by a tenant, with an
//     active flag, optional expiry, and best-effort usage tracking.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on startup.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist, is inactive, or expired
//   - ErrDuplicateToken: token string collision on insert
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(":memory:") for
// integration tests with real SQLite.
package store
