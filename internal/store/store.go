// Package store defines the document-store surface the board engines
// are written against: atomic get/set/update/delete on single
// documents, bounded-size atomic batches, filtered queries, and live
// subscriptions delivering a consistent snapshot followed by
// incremental snapshots as documents change.
//
// Two implementations exist: store/postgres (pgx-backed, the remote
// store) and store/memory (in-process, used by tests). Both honor the
// same limits and per-document atomicity rules.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"boardsync/internal/config"
)

// Document is a stored document: an id plus a flat field map.
type Document struct {
	ID     string
	Fields map[string]any
}

// DataTo unmarshals the document's fields into v via JSON round-trip,
// so struct types with json tags map naturally onto stored fields.
func (d Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// FieldsOf converts a struct with json tags into a document field map.
// Fields marked omitempty and zero-valued are absent from the result,
// matching the "optional field is not present" store convention.
func FieldsOf(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

// FilterOp is a query filter operator.
type FilterOp string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual FilterOp = "=="
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains FilterOp = "array-contains"
	// OpIn matches documents whose field equals any of the values.
	// Bounded: at most config.MaxInQueryIDs values per query.
	OpIn FilterOp = "in"
)

// Filter is a single query predicate.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int // 0 = no limit
}

// Where appends an equality filter.
func (q Query) Where(field string, op FilterOp, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is one delivery from a subscription: the full current result
// set of the subscribed query, or a terminal error.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Subscription is a live query. Snapshots yields an initial consistent
// snapshot followed by a fresh snapshot after each relevant change,
// until Close is called or the subscribing context ends. The channel is
// closed on termination.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close()
}

// Batch accumulates writes committed atomically. A batch may touch at
// most config.MaxBatchDocuments documents; Commit fails beyond that
// without applying anything.
type Batch interface {
	Set(collection, id string, fields map[string]any)
	Update(collection, id string, fields map[string]any)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Adapter is the document store consumed by the board engines.
//
// Update is atomic with respect to the fields it touches: concurrent
// updates to disjoint fields of one document both survive, and the
// later write wins per overlapping field. No compare-and-swap is
// offered; read-modify-write callers accept last-write-wins.
type Adapter interface {
	// Get returns the document or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Update merges fields into an existing document. A Delete sentinel
	// value removes the field; an Increment sentinel adds atomically.
	// Fails with domain.ErrNotFound if the document is absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// DeleteDoc removes a document. Deleting an absent document is a no-op.
	DeleteDoc(ctx context.Context, collection, id string) error
	// GetDocs runs a query and returns matching documents.
	GetDocs(ctx context.Context, q Query) ([]Document, error)
	// NewBatch starts an empty atomic batch.
	NewBatch() Batch
	// Subscribe opens a live subscription on the query.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
}

// GetDocsByIDs fetches documents by id, chunking into OpIn queries no
// larger than the store's in-query limit.
func GetDocsByIDs(ctx context.Context, a Adapter, collection string, ids []string) ([]Document, error) {
	var docs []Document
	for start := 0; start < len(ids); start += config.MaxInQueryIDs {
		end := min(start+config.MaxInQueryIDs, len(ids))
		chunk, err := a.GetDocs(ctx, Query{
			Collection: collection,
			Filters:    []Filter{{Field: "id", Op: OpIn, Value: ids[start:end]}},
		})
		if err != nil {
			return nil, err
		}
		docs = append(docs, chunk...)
	}
	return docs, nil
}
