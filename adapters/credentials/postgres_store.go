package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	// DSN is the PostgreSQL connection string
	DSN string

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int32

	// MaxConnLifetime bounds how long a connection is reused (default: 5 minutes)
	MaxConnLifetime time.Duration

	// MigrateOnStart creates the principals table if it does not exist
	MigrateOnStart bool
}

func (c *PostgresConfig) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 5 * time.Minute
	}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS principals (
	id          TEXT PRIMARY KEY,
	secret_hash TEXT NOT NULL,
	roles       TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is a credential store backed by PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ ports.CredentialStore  = (*PostgresStore)(nil)
	_ ports.CredentialWriter = (*PostgresStore)(nil)
)

// OpenPostgres connects to PostgreSQL and verifies connectivity
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if cfg.MigrateOnStart {
		if _, err := pool.Exec(ctx, postgresSchema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

// Lookup returns the principal for identifier
func (s *PostgresStore) Lookup(ctx context.Context, identifier string) (core.Principal, error) {
	var p core.Principal
	err := s.pool.QueryRow(ctx,
		`SELECT id, secret_hash, roles FROM principals WHERE id = $1`, identifier,
	).Scan(&p.ID, &p.SecretHash, &p.Roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Principal{}, core.ErrPrincipalNotFound
	}
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: failed to look up principal: %v", core.ErrStoreUnavailable, err)
	}
	return p, nil
}

// Upsert stores or replaces a principal
func (s *PostgresStore) Upsert(ctx context.Context, principal core.Principal) error {
	roles := principal.Roles
	if roles == nil {
		roles = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO principals (id, secret_hash, roles) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			secret_hash = EXCLUDED.secret_hash,
			roles = EXCLUDED.roles,
			updated_at = now()`,
		principal.ID, principal.SecretHash, roles,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert principal: %w", err)
	}
	return nil
}

// Delete removes a principal
func (s *PostgresStore) Delete(ctx context.Context, identifier string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, identifier)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrPrincipalNotFound
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
