package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process DocumentStore with the same semantics as
// the Postgres implementation. It backs the unit tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string]Doc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) coll(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Doc)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}

	var out []Document
	for _, id := range c.order {
		doc := c.docs[id]
		if doc == nil || !matches(doc, filters) {
			continue
		}
		out = append(out, Document{ID: id, Data: cloneDoc(doc)})
	}

	if order != nil {
		field, desc := order.Field, order.Desc
		sort.SliceStable(out, func(i, j int) bool {
			less := compareValues(out[i].Data[field], out[j].Data[field]) < 0
			if desc {
				return !less && compareValues(out[i].Data[field], out[j].Data[field]) != 0
			}
			return less
		})
	}

	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Doc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(collection, id, doc)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Doc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(collection, id, fields)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete(collection, id)
	return nil
}

func (s *MemoryStore) set(collection, id string, doc Doc) {
	c := s.coll(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = cloneDoc(doc)
}

func (s *MemoryStore) update(collection, id string, fields Doc) error {
	c := s.coll(collection)
	doc, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	for k, v := range cloneDoc(fields) {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) delete(collection, id string) {
	c := s.coll(collection)
	if _, ok := c.docs[id]; !ok {
		return
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

type memOp struct {
	kind       string // "set", "update", "delete"
	collection string
	id         string
	doc        Doc
}

type memBatch struct {
	store *MemoryStore
	ops   []memOp
}

func (s *MemoryStore) NewBatch() Batch {
	return &memBatch{store: s}
}

func (b *memBatch) Set(collection, id string, doc Doc) {
	b.ops = append(b.ops, memOp{kind: "set", collection: collection, id: id, doc: cloneDoc(doc)})
}

func (b *memBatch) Update(collection, id string, fields Doc) {
	b.ops = append(b.ops, memOp{kind: "update", collection: collection, id: id, doc: cloneDoc(fields)})
}

func (b *memBatch) Delete(collection, id string) {
	b.ops = append(b.ops, memOp{kind: "delete", collection: collection, id: id})
}

// Commit applies all queued ops or none. Every op is checked against the
// state the preceding ops would produce before anything mutates, so a
// failing op leaves the store exactly as it was, matching the Postgres
// transaction rollback.
func (b *memBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	exists := make(map[string]bool)
	key := func(collection, id string) string { return collection + "\x00" + id }
	existing := func(collection, id string) bool {
		k := key(collection, id)
		if present, staged := exists[k]; staged {
			return present
		}
		c, ok := b.store.collections[collection]
		if !ok {
			return false
		}
		_, ok = c.docs[id]
		return ok
	}

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			exists[key(op.collection, op.id)] = true
		case "update":
			if !existing(op.collection, op.id) {
				return fmt.Errorf("update %s/%s: %w", op.collection, op.id, ErrNotFound)
			}
		case "delete":
			exists[key(op.collection, op.id)] = false
		}
	}

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			b.store.set(op.collection, op.id, op.doc)
		case "update":
			if err := b.store.update(op.collection, op.id, op.doc); err != nil {
				return err
			}
		case "delete":
			b.store.delete(op.collection, op.id)
		}
	}
	b.ops = nil
	return nil
}

func matches(doc Doc, filters []Filter) bool {
	for _, f := range filters {
		if compareValues(doc[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	// Unlike types never match a filter and sort as equal.
	if fmt.Sprint(a) == fmt.Sprint(b) {
		return 0
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func cloneDoc(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Doc:
		return cloneDoc(val)
	case map[string]any:
		return map[string]any(cloneDoc(Doc(val)))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
