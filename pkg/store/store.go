// Package store is snapindex's persistent index: a SQLite database with a
// companion FTS5 full-text table, opened with WAL journaling and a bounded
// connection pool. It is the only component that touches disk-level SQL;
// every other package hands it fully-formed models.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// maxOpenConns matches spec.md §5's "pooled set of (≤10) connections".
const maxOpenConns = 10

// acquireTimeout bounds connection acquisition through conn. The Store's
// query and write methods use the pool directly (s.db) and are not bounded
// by it.
const acquireTimeout = 10 * time.Second

// Store owns the database handle and logger for all persistence operations.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) the SQLite database at path, applies
// pragmas, creates the schema if missing, and runs idempotent migrations.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperror.Store("open database", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}

	if err := s.applyPragmas(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// conn acquires a connection from the pool within acquireTimeout, per
// spec.md §5's acquisition-timeout requirement. Callers must Close() the
// returned connection.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()
	c, err := s.db.Conn(cctx)
	if err != nil {
		return nil, apperror.Store("acquire connection", err)
	}
	return c, nil
}

func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return apperror.Store("apply pragma: "+p, err)
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS exports (
	id TEXT PRIMARY KEY,
	source_paths TEXT NOT NULL,
	source_type TEXT NOT NULL,
	extraction_path TEXT,
	creation_date TEXT,
	validation_status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS people (
	username TEXT PRIMARY KEY,
	display_name TEXT
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	display_name TEXT,
	participants TEXT NOT NULL DEFAULT '[]',
	last_event_at TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	sender TEXT NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	export_id TEXT NOT NULL REFERENCES exports(id),
	conversation_id TEXT REFERENCES conversations(id),
	content TEXT,
	event_type TEXT NOT NULL,
	media_references TEXT NOT NULL DEFAULT '[]',
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	media_type TEXT NOT NULL,
	latitude REAL,
	longitude REAL,
	media_path TEXT,
	download_url TEXT,
	proxy_url TEXT,
	download_status TEXT NOT NULL DEFAULT 'Pending',
	export_id TEXT NOT NULL REFERENCES exports(id)
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
	content,
	event_id UNINDEXED,
	conversation_id UNINDEXED,
	sender UNINDEXED,
	tokenize = 'unicode61'
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_export_id ON events(export_id);
CREATE INDEX IF NOT EXISTS idx_events_conv_ts ON events(conversation_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type_ts ON events(event_type, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_media ON events(conversation_id) WHERE media_references != '[]';
CREATE INDEX IF NOT EXISTS idx_memories_timestamp ON memories(timestamp);
CREATE INDEX IF NOT EXISTS idx_memories_export_id ON memories(export_id);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return apperror.Store("initialize schema", err)
	}
	return nil
}

// hasColumn probes column existence via pragma_table_info, the approach
// spec.md §4.1 mandates for migrations (as opposed to blind best-effort
// ALTER TABLE statements).
func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, apperror.Store("probe column "+table+"."+column, err)
	}
	return n > 0, nil
}

// runMigrations applies the three guarded, idempotent migrations named in
// spec.md §4.1 / §9: add source_type, wrap source_path into source_paths,
// add memory download columns. Each is independently guarded by a column
// probe so re-running Open on an already-migrated database is a no-op.
func (s *Store) runMigrations(ctx context.Context) error {
	if err := s.migrateAddSourceType(ctx); err != nil {
		return err
	}
	if err := s.migrateWrapSourcePaths(ctx); err != nil {
		return err
	}
	if err := s.migrateAddDownloadColumns(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) migrateAddSourceType(ctx context.Context) error {
	ok, err := s.hasColumn(ctx, "exports", "source_type")
	if err != nil || ok {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`ALTER TABLE exports ADD COLUMN source_type TEXT NOT NULL DEFAULT 'folder'`); err != nil {
		return apperror.Store("migrate: add source_type", err)
	}
	return nil
}

// migrateWrapSourcePaths handles the legacy single source_path -> JSON-array
// source_paths rename flagged as an Open Question in spec.md §9. A legacy
// database has a source_path column and no source_paths column.
func (s *Store) migrateWrapSourcePaths(ctx context.Context) error {
	hasPaths, err := s.hasColumn(ctx, "exports", "source_paths")
	if err != nil {
		return err
	}
	if hasPaths {
		return nil
	}
	hasLegacy, err := s.hasColumn(ctx, "exports", "source_path")
	if err != nil {
		return err
	}
	if !hasLegacy {
		// Fresh database created by initSchema already has source_paths.
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE exports ADD COLUMN source_paths TEXT`); err != nil {
		return apperror.Store("migrate: add source_paths", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_path FROM exports`)
	if err != nil {
		return apperror.Store("migrate: read legacy source_path", err)
	}
	defer rows.Close()
	type legacyRow struct{ id, path string }
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.path); err != nil {
			return apperror.Store("migrate: scan legacy source_path", err)
		}
		legacy = append(legacy, r)
	}
	for _, r := range legacy {
		wrapped, err := marshalJSON([]string{r.path})
		if err != nil {
			return apperror.JSON("migrate: wrap source_path", err)
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE exports SET source_paths = ? WHERE id = ?`, wrapped, r.id); err != nil {
			return apperror.Store("migrate: write source_paths", err)
		}
	}
	return nil
}

func (s *Store) migrateAddDownloadColumns(ctx context.Context) error {
	ok, err := s.hasColumn(ctx, "memories", "download_status")
	if err != nil || ok {
		return err
	}
	stmts := []string{
		`ALTER TABLE memories ADD COLUMN download_url TEXT`,
		`ALTER TABLE memories ADD COLUMN proxy_url TEXT`,
		`ALTER TABLE memories ADD COLUMN download_status TEXT NOT NULL DEFAULT 'Pending'`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperror.Store("migrate: add memory download columns", err)
		}
	}
	return nil
}
