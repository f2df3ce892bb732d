// Package memory provides an in-process store.Adapter with the same
// atomicity, limit, and subscription semantics as the remote store.
// It backs the test suite and offline development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/store"
)

// Adapter is an in-memory document store. Safe for concurrent use.
type Adapter struct {
	mu    sync.Mutex
	colls map[string]map[string]map[string]any
	subs  []*subscription

	// Failure hooks for tests. When non-nil and returning a non-nil
	// error, the corresponding operation fails without mutating state.
	UpdateHook func(collection, id string) error
	GetHook    func(collection, id string) error
}

// New creates an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{
		colls: make(map[string]map[string]map[string]any),
	}
}

func (a *Adapter) collection(name string) map[string]map[string]any {
	docs, ok := a.colls[name]
	if !ok {
		docs = make(map[string]map[string]any)
		a.colls[name] = docs
	}
	return docs
}

// Get returns the document or an error wrapping domain.ErrNotFound.
func (a *Adapter) Get(ctx context.Context, collection, id string) (store.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.GetHook != nil {
		if err := a.GetHook(collection, id); err != nil {
			return store.Document{}, err
		}
	}

	fields, ok := a.collection(collection)[id]
	if !ok {
		return store.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return store.Document{ID: id, Fields: cloneFields(fields)}, nil
}

// Set creates or fully replaces a document.
func (a *Adapter) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	a.mu.Lock()
	resolved, _ := store.ResolveSentinels(nil, normalize(fields), time.Now())
	a.collection(collection)[id] = resolved
	a.mu.Unlock()

	a.notify(collection)
	return nil
}

// Update merges fields into an existing document, resolving sentinel
// values. Fails with domain.ErrNotFound if the document is absent.
func (a *Adapter) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	a.mu.Lock()

	if a.UpdateHook != nil {
		if err := a.UpdateHook(collection, id); err != nil {
			a.mu.Unlock()
			return err
		}
	}

	current, ok := a.collection(collection)[id]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	merged, _ := store.ResolveSentinels(current, normalize(fields), time.Now())
	a.collection(collection)[id] = merged
	a.mu.Unlock()

	a.notify(collection)
	return nil
}

// DeleteDoc removes a document; absent documents are a no-op.
func (a *Adapter) DeleteDoc(ctx context.Context, collection, id string) error {
	a.mu.Lock()
	delete(a.collection(collection), id)
	a.mu.Unlock()

	a.notify(collection)
	return nil
}

// GetDocs runs a query against current state.
func (a *Adapter) GetDocs(ctx context.Context, q store.Query) ([]store.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runQueryLocked(q)
}

func (a *Adapter) runQueryLocked(q store.Query) ([]store.Document, error) {
	for _, f := range q.Filters {
		if f.Op == store.OpIn {
			if n := inValueLen(f.Value); n > config.MaxInQueryIDs {
				return nil, fmt.Errorf("%w: in-query carries %d values (limit %d)",
					domain.ErrValidation, n, config.MaxInQueryIDs)
			}
		}
	}

	var docs []store.Document
	for id, fields := range a.collection(q.Collection) {
		if matches(id, fields, q.Filters) {
			docs = append(docs, store.Document{ID: id, Fields: cloneFields(fields)})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			less := compareValues(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy]) < 0
			if q.Descending {
				return !less
			}
			return less
		})
	} else {
		// Stable iteration order for tests
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// NewBatch starts an atomic batch against this adapter.
func (a *Adapter) NewBatch() store.Batch {
	return &batch{adapter: a}
}

// Subscribe opens a live subscription: an initial snapshot, then a
// fresh snapshot after every mutation of the subscribed collection.
func (a *Adapter) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	a.mu.Lock()
	sub := &subscription{
		adapter: a,
		query:   q,
		ch:      make(chan store.Snapshot, 1),
		done:    make(chan struct{}),
	}
	a.subs = append(a.subs, sub)
	docs, err := a.runQueryLocked(q)
	a.mu.Unlock()

	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.push(store.Snapshot{Docs: docs})

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (a *Adapter) notify(collection string) {
	a.mu.Lock()
	live := a.subs[:0]
	var pending []*subscription
	var snapshots []store.Snapshot
	for _, sub := range a.subs {
		select {
		case <-sub.done:
			continue
		default:
		}
		live = append(live, sub)
		if sub.query.Collection != collection {
			continue
		}
		docs, err := a.runQueryLocked(sub.query)
		pending = append(pending, sub)
		snapshots = append(snapshots, store.Snapshot{Docs: docs, Err: err})
	}
	a.subs = live
	a.mu.Unlock()

	for i, sub := range pending {
		sub.push(snapshots[i])
	}
}

type subscription struct {
	adapter *Adapter
	query   store.Query
	ch      chan store.Snapshot
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

func (s *subscription) Snapshots() <-chan store.Snapshot { return s.ch }

func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// push conflates: an undelivered snapshot is replaced by the newer one,
// so a slow consumer only ever sees the latest state.
func (s *subscription) push(snap store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
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

// Commit applies all staged writes atomically: the batch either fully
// applies or leaves state untouched.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) > config.MaxBatchDocuments {
		return fmt.Errorf("%w: batch touches %d documents (limit %d)",
			domain.ErrValidation, len(b.ops), config.MaxBatchDocuments)
	}

	a := b.adapter
	a.mu.Lock()

	// Validate before mutating so a failing batch applies nothing.
	for _, op := range b.ops {
		if op.kind == "update" {
			if _, ok := a.collection(op.collection)[op.id]; !ok {
				a.mu.Unlock()
				return fmt.Errorf("document %s/%s: %w", op.collection, op.id, domain.ErrNotFound)
			}
		}
	}

	now := time.Now()
	touched := make(map[string]struct{})
	for _, op := range b.ops {
		touched[op.collection] = struct{}{}
		switch op.kind {
		case "set":
			resolved, _ := store.ResolveSentinels(nil, normalize(op.fields), now)
			a.collection(op.collection)[op.id] = resolved
		case "update":
			merged, _ := store.ResolveSentinels(a.collection(op.collection)[op.id], normalize(op.fields), now)
			a.collection(op.collection)[op.id] = merged
		case "delete":
			delete(a.collection(op.collection), op.id)
		}
	}
	a.mu.Unlock()

	for collection := range touched {
		a.notify(collection)
	}
	return nil
}

// normalize JSON-encodes plain values so stored representations match
// what FieldsOf produces, while passing sentinel values through.
func normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if store.IsSentinel(v) {
			out[k] = v
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			out[k] = v
			continue
		}
		var jv any
		if err := json.Unmarshal(raw, &jv); err != nil {
			out[k] = v
			continue
		}
		out[k] = jv
	}
	return out
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneFields(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func matches(id string, fields map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		var fv any
		if f.Field == "id" {
			fv = id
		} else {
			var ok bool
			fv, ok = fields[f.Field]
			if !ok && f.Op != store.OpIn {
				return false
			}
		}
		switch f.Op {
		case store.OpEqual:
			if compareValues(fv, jsonValue(f.Value)) != 0 {
				return false
			}
		case store.OpArrayContains:
			arr, ok := fv.([]any)
			if !ok {
				return false
			}
			want := jsonValue(f.Value)
			found := false
			for _, e := range arr {
				if compareValues(e, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case store.OpIn:
			want := jsonValue(f.Value)
			vals, ok := want.([]any)
			if !ok {
				return false
			}
			found := false
			for _, e := range vals {
				if compareValues(fv, e) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func jsonValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var jv any
	if err := json.Unmarshal(raw, &jv); err != nil {
		return v
	}
	return jv
}

func inValueLen(v any) int {
	jv, ok := jsonValue(v).([]any)
	if !ok {
		return 1
	}
	return len(jv)
}

// compareValues orders JSON-typed values: nil < bool < number < string.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		return 0
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
