// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides tenant/token persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tenants (
			id           TEXT PRIMARY KEY,
			odoo_url     TEXT NOT NULL,
			odoo_db      TEXT NOT NULL,
			odoo_user    TEXT NOT NULL,
			odoo_secret  TEXT NOT NULL,
			display_name TEXT,
			email        TEXT,
			active       INTEGER NOT NULL DEFAULT 1,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS api_tokens (
			token       TEXT PRIMARY KEY,
			tenant_id   TEXT NOT NULL,
			active      INTEGER NOT NULL DEFAULT 1,
			expires_at  TEXT,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used   TEXT,
			created_at  TEXT NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id)
		);

		CREATE INDEX IF NOT EXISTS idx_api_tokens_tenant
			ON api_tokens(tenant_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateTenant inserts a new tenant.
func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	query := `
		INSERT INTO tenants (id, odoo_url, odoo_db, odoo_user, odoo_secret, display_name, email, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.OdooURL,
		tenant.OdooDB,
		tenant.OdooUser,
		tenant.OdooSecret,
		nullString(tenant.DisplayName),
		nullString(tenant.Email),
		boolToInt(tenant.Active),
		tenant.CreatedAt.UTC().Format(time.RFC3339),
		tenant.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tenant: %w", err)
	}

	s.logger.Debug("created tenant", "id", tenant.ID, "odoo_url", tenant.OdooURL)
	return nil
}

// GetTenant retrieves a tenant by ID.
// Returns ErrNotFound if the tenant doesn't exist.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	query := `
		SELECT id, odoo_url, odoo_db, odoo_user, odoo_secret, display_name, email, active, created_at, updated_at
		FROM tenants
		WHERE id = ?
	`

	var tenant Tenant
	var displayName, email sql.NullString
	var active int
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.OdooURL,
		&tenant.OdooDB,
		&tenant.OdooUser,
		&tenant.OdooSecret,
		&displayName,
		&email,
		&active,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tenant: %w", err)
	}

	tenant.DisplayName = displayName.String
	tenant.Email = email.String
	tenant.Active = active != 0

	tenant.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	tenant.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &tenant, nil
}

// SetTenantActive flips a tenant's active flag.
// Returns ErrNotFound if the tenant doesn't exist.
func (s *SQLiteStore) SetTenantActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE tenants SET active = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		boolToInt(active),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Info("tenant active flag updated", "id", id, "active", active)
	return nil
}

// CreateToken inserts a new API token.
// Returns ErrDuplicateToken if the token string already exists.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *APIToken) error {
	query := `
		INSERT INTO api_tokens (token, tenant_id, active, expires_at, usage_count, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.Token,
		token.TenantID,
		boolToInt(token.Active),
		nullTime(token.ExpiresAt),
		token.UsageCount,
		nullTime(token.LastUsed),
		token.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("inserting token: %w", err)
	}

	s.logger.Debug("created api token", "tenant_id", token.TenantID)
	return nil
}

// GetActiveToken retrieves an active, unexpired token row by exact string match.
// Returns ErrNotFound for unknown, deactivated, or expired tokens.
func (s *SQLiteStore) GetActiveToken(ctx context.Context, tokenStr string) (*APIToken, error) {
	query := `
		SELECT token, tenant_id, active, expires_at, usage_count, last_used, created_at
		FROM api_tokens
		WHERE token = ? AND active = 1
	`

	var token APIToken
	var active int
	var expiresAtStr, lastUsedStr sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, tokenStr).Scan(
		&token.Token,
		&token.TenantID,
		&active,
		&expiresAtStr,
		&token.UsageCount,
		&lastUsedStr,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying token: %w", err)
	}

	token.Active = active != 0

	if token.ExpiresAt, err = parseNullTime(expiresAtStr); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if token.LastUsed, err = parseNullTime(lastUsedStr); err != nil {
		return nil, fmt.Errorf("parsing last_used: %w", err)
	}
	token.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}

	return &token, nil
}

// DeactivateToken marks a token inactive.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStore) DeactivateToken(ctx context.Context, tokenStr string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE api_tokens SET active = 0 WHERE token = ?`, tokenStr)
	if err != nil {
		return fmt.Errorf("deactivating token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Info("api token deactivated")
	return nil
}

// RecordTokenUse bumps the usage counter and last-used timestamp.
func (s *SQLiteStore) RecordTokenUse(ctx context.Context, tokenStr string) error {
	query := `UPDATE api_tokens SET usage_count = usage_count + 1, last_used = ? WHERE token = ?`

	_, err := s.db.ExecContext(ctx, query,
		time.Now().UTC().Format(time.RFC3339),
		tokenStr,
	)
	if err != nil {
		return fmt.Errorf("recording token use: %w", err)
	}
	return nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString converts an empty string to a NULL-able value
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime formats an optional time as RFC3339 or NULL
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// parseNullTime parses an optional RFC3339 column value
func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
