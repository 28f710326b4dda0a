package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreQueryFilterAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "sales", "a", Doc{"product": "X", "date": "2025-07-01"})
	s.Set(ctx, "sales", "b", Doc{"product": "Y", "date": "2025-07-03"})
	s.Set(ctx, "sales", "c", Doc{"product": "X", "date": "2025-07-02"})

	docs, err := s.Query(ctx, "sales", []Filter{{Field: "product", Value: "X"}}, &OrderBy{Field: "date", Desc: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0].ID != "c" || docs[1].ID != "a" {
		t.Errorf("order = %s, %s; want c, a", docs[0].ID, docs[1].ID)
	}
}

func TestMemoryStoreQueryUnknownCollection(t *testing.T) {
	s := NewMemoryStore()

	docs, err := s.Query(context.Background(), "nothing", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("len = %d, want 0", len(docs))
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	s := NewMemoryStore()

	err := s.Update(context.Background(), "sales", "nope", Doc{"x": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "sales", "a", Doc{"product": "X", "price": 2.0})
	if err := s.Update(ctx, "sales", "a", Doc{"price": 3.0}); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "sales", "a")
	if err != nil {
		t.Fatal(err)
	}
	if doc["price"] != 3.0 || doc["product"] != "X" {
		t.Errorf("doc = %v", doc)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	original := Doc{"nested": map[string]any{"k": "v"}}
	s.Set(ctx, "sales", "a", original)

	// Mutating what we passed in or got out must not leak into the store.
	original["nested"].(map[string]any)["k"] = "changed"
	read, _ := s.Get(ctx, "sales", "a")
	read["nested"].(map[string]any)["k"] = "changed again"

	fresh, _ := s.Get(ctx, "sales", "a")
	if fresh["nested"].(map[string]any)["k"] != "v" {
		t.Error("stored document shares memory with callers")
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "sales", "keep", Doc{"product": "X"})
	s.Set(ctx, "sales", "gone", Doc{"product": "Y"})

	b := s.NewBatch()
	b.Set("sales", "new", Doc{"product": "Z"})
	b.Update("sales", "keep", Doc{"product": "X2"})
	b.Delete("sales", "gone")
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	if doc, _ := s.Get(ctx, "sales", "keep"); doc["product"] != "X2" {
		t.Errorf("keep = %v", doc)
	}
	if _, err := s.Get(ctx, "sales", "gone"); !errors.Is(err, ErrNotFound) {
		t.Error("gone should be deleted")
	}
	if _, err := s.Get(ctx, "sales", "new"); err != nil {
		t.Error("new should exist")
	}
}

func TestMemoryStoreBatchAtomicOnFailure(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "c", "existing", Doc{"v": 1})

	// A batch mixing a valid Set with an Update of a missing id must
	// apply nothing, like the Postgres transaction rollback.
	b := s.NewBatch()
	b.Set("c", "new", Doc{"v": 2})
	b.Update("c", "missing", Doc{"v": 3})
	if err := b.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Commit err = %v, want ErrNotFound", err)
	}

	if _, err := s.Get(ctx, "c", "new"); !errors.Is(err, ErrNotFound) {
		t.Error("Set leaked from a failed batch")
	}
	if doc, _ := s.Get(ctx, "c", "existing"); doc["v"] != 1 {
		t.Errorf("pre-existing doc changed: %v", doc)
	}
}

func TestMemoryStoreBatchUpdateAfterSetInBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// An Update may target a document that an earlier op in the same
	// batch creates.
	b := s.NewBatch()
	b.Set("c", "a", Doc{"v": 1})
	b.Update("c", "a", Doc{"v": 2})
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if doc, _ := s.Get(ctx, "c", "a"); doc["v"] != 2 {
		t.Errorf("doc = %v", doc)
	}

	// But not one that an earlier op deletes.
	b = s.NewBatch()
	b.Delete("c", "a")
	b.Update("c", "a", Doc{"v": 3})
	if err := b.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Commit err = %v, want ErrNotFound", err)
	}
	if doc, _ := s.Get(ctx, "c", "a"); doc["v"] != 2 {
		t.Error("failed batch must leave the document untouched")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 40 {
			t.Fatalf("id length = %d, want 40 hex chars", len(id))
		}
		if seen[id] {
			t.Fatal("duplicate id")
		}
		seen[id] = true
	}
}
