// Package catalog is the persistent card catalog: a SQLite-backed store
// with case-insensitive name, CMC, rarity, and set-code indexes plus an
// FTS5 full-text index over name/oracle text/type line.
package catalog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config configures Store.Open.
type Config struct {
	// Path is the SQLite file path, or ":memory:" for tests.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// AutoMigrate applies pending migrations on Open. Defaults to true.
	AutoMigrate bool
}

// DefaultConfig returns sensible defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		BusyTimeout:     5 * time.Second,
		AutoMigrate:     true,
	}
}

// Store wraps the catalog's database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite catalog at cfg.Path and
// applies embedded migrations when cfg.AutoMigrate is set.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errs.New(errs.KindInvalidInput, "catalog path must not be empty")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "create catalog directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.BusyTimeout == 0 {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)", cfg.Path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "open catalog database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "ping catalog database", err)
	}

	s := &Store{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(cfg.Path); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	log.WithComponent("catalog").Debug().Str("path", cfg.Path).Msg("catalog opened")
	return s, nil
}

func (s *Store) migrate(path string) error {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errs.Wrap(errs.KindInternal, "access embedded migrations", err)
	}
	sourceDriver, err := iofs.New(migrationsDir, ".")
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build migration source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite://"+sqliteMigrateDSN(path))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build migration runner", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.Wrap(errs.KindInternal, "apply catalog migrations", err)
	}
	return nil
}

// sqliteMigrateDSN normalizes a filesystem path for golang-migrate's
// sqlite:// URL scheme; an in-memory database uses a shared cache URI
// so the migration runner's separate connection sees the same database.
func sqliteMigrateDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return filepath.ToSlash(path)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for advanced callers (ingestion
// batches).
func (s *Store) DB() *sql.DB {
	return s.db
}
