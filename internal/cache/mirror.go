// Package cache persists a local mirror of subscribed documents in
// sqlite, so the UI can render from disk while a write is in flight or
// the client is offline. sqlite's file locking makes the mirror safe
// across processes sharing the cache file.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"boardsync/internal/store"
)

// Mirror is a sqlite-backed copy of subscribed documents.
type Mirror struct {
	db *sql.DB
}

// Open opens (or creates) the mirror database at path. Use ":memory:"
// for an ephemeral mirror in tests.
func Open(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &Mirror{db: db}, nil
}

// Close closes the underlying database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// ApplySnapshot replaces the mirrored contents of a collection with the
// snapshot's documents, in one transaction so readers never observe a
// half-applied snapshot.
func (m *Mirror) ApplySnapshot(collection string, docs []store.Document) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot apply: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM documents WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("clear collection %s: %w", collection, err)
	}

	for _, doc := range docs {
		raw, err := json.Marshal(doc.Fields)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", collection, doc.ID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
			collection, doc.ID, string(raw),
		)
		if err != nil {
			return fmt.Errorf("insert document %s/%s: %w", collection, doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot apply: %w", err)
	}
	return nil
}

// Get returns a mirrored document, or ok=false when it is not cached.
func (m *Mirror) Get(collection, id string) (store.Document, bool, error) {
	row := m.db.QueryRow(
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return store.Document{}, false, nil
		}
		return store.Document{}, false, fmt.Errorf("query document: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return store.Document{}, false, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Fields: fields}, true, nil
}

// List returns all mirrored documents of a collection.
func (m *Mirror) List(collection string) ([]store.Document, error) {
	rows, err := m.db.Query(
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// Follow subscribes to the query and mirrors every snapshot until the
// context ends. Snapshot errors are logged, not fatal: the mirror keeps
// serving the last good state.
func (m *Mirror) Follow(ctx context.Context, adapter store.Adapter, q store.Query, logger *slog.Logger) error {
	sub, err := adapter.Subscribe(ctx, q)
	if err != nil {
		return fmt.Errorf("subscribe for mirror: %w", err)
	}

	go func() {
		defer sub.Close()
		for snap := range sub.Snapshots() {
			if snap.Err != nil {
				logger.Warn("mirror snapshot failed", "collection", q.Collection, "error", snap.Err)
				continue
			}
			if err := m.ApplySnapshot(q.Collection, snap.Docs); err != nil {
				logger.Warn("mirror apply failed", "collection", q.Collection, "error", err)
			}
		}
	}()
	return nil
}
