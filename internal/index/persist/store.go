// Package persist snapshots the symbol layer to a local SQLite database so
// a warm index survives restarts without re-parsing the workspace.
package persist

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"agcodex/internal/index"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	name       TEXT NOT NULL,
	file       TEXT NOT NULL,
	line       INTEGER NOT NULL,
	col        INTEGER NOT NULL,
	byte       INTEGER NOT NULL,
	scope      TEXT NOT NULL DEFAULT '',
	visibility TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (name, file, line, col)
);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a SQLite-backed symbol snapshot.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	// modernc.org/sqlite serves one writer; keep the pool at one conn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored snapshot with the given symbols atomically.
func (s *Store) Save(ctx context.Context, symbols []index.NamedLocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO symbols (name, file, line, col, byte, scope, visibility)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, nl := range symbols {
		loc := nl.Location
		if _, err := stmt.ExecContext(ctx, nl.Name, loc.File, loc.Line, loc.Column, loc.Byte, loc.Scope, loc.Visibility); err != nil {
			return fmt.Errorf("insert symbol %s: %w", nl.Name, err)
		}
	}
	return tx.Commit()
}

// Load reads every stored symbol, ordered by name then file.
func (s *Store) Load(ctx context.Context) ([]index.NamedLocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, file, line, col, byte, scope, visibility
		FROM symbols ORDER BY name, file, line`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var out []index.NamedLocation
	for rows.Next() {
		var nl index.NamedLocation
		loc := &nl.Location
		if err := rows.Scan(&nl.Name, &loc.File, &loc.Line, &loc.Column, &loc.Byte, &loc.Scope, &loc.Visibility); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		out = append(out, nl)
	}
	return out, rows.Err()
}

// Restore loads the snapshot into a symbol layer.
func (s *Store) Restore(ctx context.Context, layer *index.SymbolLayer) (int, error) {
	symbols, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	for _, nl := range symbols {
		layer.Add(nl.Name, nl.Location)
	}
	return len(symbols), nil
}

// Count returns the number of stored symbol rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols`).Scan(&n)
	return n, err
}

// SetMeta stores a metadata key such as the last indexed commit.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Meta reads a metadata key; missing keys return "".
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
