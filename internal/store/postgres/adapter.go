// Package postgres implements store.Adapter on PostgreSQL via pgx: one
// JSONB row per document, transaction-backed atomic batches, and
// LISTEN/NOTIFY driven subscriptions.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/store"
)

// notifyChannel is the LISTEN/NOTIFY channel carrying the name of the
// mutated collection as payload.
const notifyChannel = "boardsync_changes"

// Adapter is a pgx-backed document store. Each collection is a table
// (id TEXT PRIMARY KEY, data JSONB, updated_at TIMESTAMPTZ); updates
// lock the row, resolve sentinel field values, and write back, which
// makes a single document's update atomic with respect to the fields
// it touches.
type Adapter struct {
	pool     *pgxpool.Pool
	listener *listener
}

// New creates an adapter over an existing pool and starts the
// notification listener feeding subscriptions.
func New(ctx context.Context, pool *pgxpool.Pool) (*Adapter, error) {
	a := &Adapter{pool: pool}
	l, err := newListener(ctx, pool, a)
	if err != nil {
		return nil, err
	}
	a.listener = l
	return a, nil
}

// Close stops the subscription listener. The pool is owned by the
// caller and is not closed here.
func (a *Adapter) Close() {
	a.listener.close()
}

// EnsureSchema creates the document tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, collections ...string) error {
	for _, c := range collections {
		// Collection names come from code constants plus the
		// environment prefix; interpolation is safe here the same way
		// prefixed table names are.
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				data JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, c)
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("ensure table %s: %w", c, err)
		}
	}
	return nil
}

// Get returns the document or an error wrapping domain.ErrNotFound.
func (a *Adapter) Get(ctx context.Context, collection, id string) (store.Document, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, collection)

	var raw []byte
	err := a.pool.QueryRow(ctx, query, id).Scan(&raw)
	if err != nil {
		if isPgNoRowsError(err) {
			return store.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return store.Document{}, classify(fmt.Errorf("get document: %w", err), "get document")
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return store.Document{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Fields: fields}, nil
}

// Set creates or fully replaces a document.
func (a *Adapter) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	resolved, _ := store.ResolveSentinels(nil, fields, time.Now())
	raw, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, collection)

	if _, err := a.pool.Exec(ctx, query, id, raw); err != nil {
		return classify(fmt.Errorf("set document: %w", err), "set document")
	}
	return a.notifyCollection(ctx, collection)
}

// Update merges fields into an existing document. The row is locked
// for the duration, so the merge is atomic per document.
func (a *Adapter) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin update: %w", err), "begin update")
	}
	defer tx.Rollback(ctx)

	selectQuery := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1 FOR UPDATE`, collection)
	var raw []byte
	if err := tx.QueryRow(ctx, selectQuery, id).Scan(&raw); err != nil {
		if isPgNoRowsError(err) {
			return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return classify(fmt.Errorf("lock document: %w", err), "lock document")
	}

	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}

	merged, _ := store.ResolveSentinels(current, fields, time.Now())
	out, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET data = $1, updated_at = now() WHERE id = $2`, collection)
	if _, err := tx.Exec(ctx, updateQuery, out, id); err != nil {
		return classify(fmt.Errorf("update document: %w", err), "update document")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		return classify(fmt.Errorf("notify: %w", err), "notify")
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit update: %w", err), "commit update")
	}
	return nil
}

// DeleteDoc removes a document; absent documents are a no-op.
func (a *Adapter) DeleteDoc(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, collection)
	if _, err := a.pool.Exec(ctx, query, id); err != nil {
		return classify(fmt.Errorf("delete document: %w", err), "delete document")
	}
	return a.notifyCollection(ctx, collection)
}

// GetDocs runs a filtered query.
func (a *Adapter) GetDocs(ctx context.Context, q store.Query) ([]store.Document, error) {
	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data FROM %s`, q.Collection)
	if where != "" {
		query += " WHERE " + where
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY data -> '%s' %s", q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", q.Collection, err), "query documents")
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", q.Collection, err), "query documents")
	}
	return docs, nil
}

func buildWhere(filters []store.Filter) (string, []any, error) {
	var clauses []string
	var args []any
	for _, f := range filters {
		switch f.Op {
		case store.OpEqual:
			if f.Field == "id" {
				args = append(args, f.Value)
				clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
				continue
			}
			raw, err := json.Marshal(f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter value: %w", err)
			}
			args = append(args, string(raw))
			clauses = append(clauses, fmt.Sprintf("data -> '%s' = $%d::jsonb", f.Field, len(args)))
		case store.OpArrayContains:
			raw, err := json.Marshal(f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter value: %w", err)
			}
			args = append(args, string(raw))
			clauses = append(clauses, fmt.Sprintf("data -> '%s' @> $%d::jsonb", f.Field, len(args)))
		case store.OpIn:
			ids, err := stringValues(f.Value)
			if err != nil {
				return "", nil, err
			}
			if len(ids) > config.MaxInQueryIDs {
				return "", nil, fmt.Errorf("%w: in-query carries %d values (limit %d)",
					domain.ErrValidation, len(ids), config.MaxInQueryIDs)
			}
			args = append(args, ids)
			if f.Field == "id" {
				clauses = append(clauses, fmt.Sprintf("id = ANY($%d)", len(args)))
			} else {
				clauses = append(clauses, fmt.Sprintf("data ->> '%s' = ANY($%d)", f.Field, len(args)))
			}
		default:
			return "", nil, fmt.Errorf("%w: unsupported filter op %q", domain.ErrValidation, f.Op)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func stringValues(v any) ([]string, error) {
	switch sv := v.(type) {
	case []string:
		return sv, nil
	case []any:
		out := make([]string, 0, len(sv))
		for _, e := range sv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: in-query values must be strings", domain.ErrValidation)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: in-query values must be a string slice", domain.ErrValidation)
	}
}

func (a *Adapter) notifyCollection(ctx context.Context, collection string) error {
	if _, err := a.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		return classify(fmt.Errorf("notify: %w", err), "notify")
	}
	return nil
}

// NewBatch starts an atomic batch committed in a single transaction.
func (a *Adapter) NewBatch() store.Batch {
	return &batch{adapter: a}
}

type batchOp struct {
	kind       string // "set", "update", "delete"
	collection string
	id         string
	fields     map[string]any
}

type batch struct {
	adapter *Adapter
	ops     []batchOp
}

func (b *batch) Set(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{kind: "set", collection: collection, id: id, fields: fields})
}

func (b *batch) Update(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{kind: "update", collection: collection, id: id, fields: fields})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{kind: "delete", collection: collection, id: id})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies the staged writes in one transaction: all-or-nothing.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) > config.MaxBatchDocuments {
		return fmt.Errorf("%w: batch touches %d documents (limit %d)",
			domain.ErrValidation, len(b.ops), config.MaxBatchDocuments)
	}

	a := b.adapter
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin batch: %w", err), "begin batch")
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	touched := make(map[string]struct{})
	for _, op := range b.ops {
		touched[op.collection] = struct{}{}
		switch op.kind {
		case "set":
			resolved, _ := store.ResolveSentinels(nil, op.fields, now)
			raw, err := json.Marshal(resolved)
			if err != nil {
				return fmt.Errorf("encode document %s/%s: %w", op.collection, op.id, err)
			}
			query := fmt.Sprintf(`
				INSERT INTO %s (id, data, updated_at) VALUES ($1, $2, now())
				ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
			`, op.collection)
			if _, err := tx.Exec(ctx, query, op.id, raw); err != nil {
				return classify(fmt.Errorf("batch set: %w", err), "batch set")
			}
		case "update":
			selectQuery := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1 FOR UPDATE`, op.collection)
			var raw []byte
			if err := tx.QueryRow(ctx, selectQuery, op.id).Scan(&raw); err != nil {
				if isPgNoRowsError(err) {
					return fmt.Errorf("document %s/%s: %w", op.collection, op.id, domain.ErrNotFound)
				}
				return classify(fmt.Errorf("batch lock: %w", err), "batch lock")
			}
			var current map[string]any
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode document %s/%s: %w", op.collection, op.id, err)
			}
			merged, _ := store.ResolveSentinels(current, op.fields, now)
			out, err := json.Marshal(merged)
			if err != nil {
				return fmt.Errorf("encode document %s/%s: %w", op.collection, op.id, err)
			}
			updateQuery := fmt.Sprintf(`UPDATE %s SET data = $1, updated_at = now() WHERE id = $2`, op.collection)
			if _, err := tx.Exec(ctx, updateQuery, out, op.id); err != nil {
				return classify(fmt.Errorf("batch update: %w", err), "batch update")
			}
		case "delete":
			query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, op.collection)
			if _, err := tx.Exec(ctx, query, op.id); err != nil {
				return classify(fmt.Errorf("batch delete: %w", err), "batch delete")
			}
		}
	}

	for collection := range touched {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
			return classify(fmt.Errorf("notify: %w", err), "notify")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit batch: %w", err), "commit batch")
	}
	return nil
}
