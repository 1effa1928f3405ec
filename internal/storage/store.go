// Package storage persists match history for the duel server.
// SQLite (pure-Go modernc.org/sqlite, no CGO) is the default backend;
// PostgreSQL is available through pgx for shared deployments.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver, registered as "pgx"
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the database.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// Path is the SQLite database file. "~" expands to the home directory.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// Store manages the database connection for match history.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured database and runs migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return openSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return openPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("storage: empty sqlite path")
	}

	// Expand ~ to home directory
	if dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return finishOpen(ctx, db, sqliteDialect)
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage: empty postgres dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	return finishOpen(ctx, db, postgresDialect)
}

func finishOpen(ctx context.Context, db *sql.DB, d dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db, dialect: d}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the backend in use.
func (s *Store) Driver() string {
	return s.dialect.name
}

// dialect holds what differs between backends.
type dialect struct {
	name     string
	idColumn string
	numbered bool // $1, $2 placeholders instead of ?
}

var sqliteDialect = dialect{
	name:     DriverSQLite,
	idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
}

var postgresDialect = dialect{
	name:     DriverPostgres,
	idColumn: "BIGSERIAL PRIMARY KEY",
	numbered: true,
}

// migrate creates the database schema if it doesn't exist.
// Timestamps are unix milliseconds so both backends sort them the same way.
func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS character_selections (
			id ` + s.dialect.idColumn + `,
			match_id TEXT NOT NULL UNIQUE,
			player1_character TEXT NOT NULL,
			player2_character TEXT NOT NULL,
			created_at_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS match_results (
			id ` + s.dialect.idColumn + `,
			match_id TEXT NOT NULL,
			winner INTEGER NOT NULL,
			loser INTEGER NOT NULL,
			player1_character TEXT NOT NULL,
			player2_character TEXT NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			ended_at_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_results_p1 ON match_results(player1_character)`,
		`CREATE INDEX IF NOT EXISTS idx_match_results_p2 ON match_results(player2_character)`,
		`CREATE INDEX IF NOT EXISTS idx_match_results_ended ON match_results(ended_at_ms DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders for backends that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
