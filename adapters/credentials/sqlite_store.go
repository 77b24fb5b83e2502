package credentials

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite sql.DB driver initialization

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLiteStore is a credential store backed by a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ ports.CredentialStore  = (*SQLiteStore)(nil)
	_ ports.CredentialWriter = (*SQLiteStore)(nil)
)

// OpenSQLite opens the database at path, creating its directory when needed,
// and migrates it to the current schema.
func OpenSQLite(ctx context.Context, logger *slog.Logger, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		const userOnlyDirPerms = 0o700
		if err := os.MkdirAll(filepath.Dir(path), userOnlyDirPerms); err != nil {
			return nil, fmt.Errorf("failed to create db parent directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	} else if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("db", path))
	goose.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	goose.SetBaseFS(sqliteMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	logger.DebugContext(ctx, "credential database ready")

	return &SQLiteStore{db: db}, nil
}

// Lookup returns the principal for identifier
func (s *SQLiteStore) Lookup(ctx context.Context, identifier string) (core.Principal, error) {
	var (
		p     core.Principal
		roles string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, secret_hash, roles FROM principals WHERE id = ?`, identifier,
	).Scan(&p.ID, &p.SecretHash, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Principal{}, core.ErrPrincipalNotFound
	}
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: failed to look up principal: %v", core.ErrStoreUnavailable, err)
	}
	p.Roles = splitRoles(roles)
	return p, nil
}

// ErrInvalidRole is returned for role names the roles column cannot hold
var ErrInvalidRole = errors.New("role names must be non-empty and must not contain commas")

// Upsert stores or replaces a principal
func (s *SQLiteStore) Upsert(ctx context.Context, principal core.Principal) error {
	for _, role := range principal.Roles {
		if role == "" || strings.Contains(role, ",") {
			return fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, secret_hash, roles) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			secret_hash = excluded.secret_hash,
			roles = excluded.roles,
			updated_at = CURRENT_TIMESTAMP`,
		principal.ID, principal.SecretHash, strings.Join(principal.Roles, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert principal: %w", err)
	}
	return nil
}

// Delete removes a principal
func (s *SQLiteStore) Delete(ctx context.Context, identifier string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, identifier)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrPrincipalNotFound
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func splitRoles(roles string) []string {
	if roles == "" {
		return nil
	}
	return strings.Split(roles, ",")
}
