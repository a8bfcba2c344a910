// Package sqlite is the embedded store: users, auth sessions, graded
// practice sessions and per-user session counters.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/speakflow/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// pragmas are applied by the driver to every connection it opens.
var pragmas = url.Values{
	"_journal_mode": {"WAL"},
	"_foreign_keys": {"ON"},
	"_busy_timeout": {"5000"},
}

// DB is a migrated SQLite database. It allows one open connection, so
// writers queue in database/sql instead of failing with SQLITE_BUSY.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open connects to the database at path, creating its directory first.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &DB{DB: sqlDB, logger: slog.Default().With("component", "sqlite")}, nil
}

// Migrate applies the embedded migrations newer than Version, each in
// its own transaction.
func (db *DB) Migrate(ctx context.Context) error {
	const ledger = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`
	if _, err := db.ExecContext(ctx, ledger); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	current, err := db.Version(ctx)
	if err != nil {
		return err
	}
	pending, err := storage.Migrations(migrationFS, "migrations", current)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		db.logger.Info("applied migration", "name", m.Name, "version", m.Version)
	}
	return nil
}

func (db *DB) apply(ctx context.Context, m storage.Migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// Version is the newest applied migration, 0 on a migrated but empty
// ledger. It fails before Migrate has created the ledger.
func (db *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
