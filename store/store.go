// Package store persists the whole collection in SQLite. Saves replace everything; there is
// no incremental update.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.senan.xyz/trackdex/track"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if exists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// LoadAll returns the collection in the order it was saved.
func (s *Store) LoadAll(ctx context.Context) ([]track.Track, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, source_path, metadata FROM tracks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []track.Track
	for rows.Next() {
		var t track.Track
		var md sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.SourcePath, &md); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if md.Valid {
			if err := json.Unmarshal([]byte(md.String), &t.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %q: %w", t.ID, err)
			}
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// SaveAll replaces the stored collection in a single transaction.
func (s *Store) SaveAll(ctx context.Context, tracks []track.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks"); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tracks (id, position, name, source_path, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		var md sql.NullString
		if t.Metadata != nil {
			b, err := json.Marshal(t.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for %q: %w", t.ID, err)
			}
			md = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, t.Name, t.SourcePath, md); err != nil {
			return fmt.Errorf("insert %q: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
