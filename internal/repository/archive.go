package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/caisseapp/backoffice/internal/store"
)

// ArchiveRepository is the archived-sales collection. Archived documents
// carry every field of the original sale plus the audit trailer written
// by the orchestrator.
type ArchiveRepository interface {
	Put(ctx context.Context, id string, doc store.Doc) error
	// HasOriginal reports whether a record archived from the given
	// original id already exists. The original id is the idempotent
	// retry key: a crash between copy and delete is recovered by
	// detecting the existing copy instead of writing a duplicate.
	HasOriginal(ctx context.Context, originalID string) (bool, error)
	List(ctx context.Context) ([]store.Document, error)
	// EnsureCollection makes the archive collection exist by writing and
	// immediately removing a marker document.
	EnsureCollection(ctx context.Context) error
}

type archiveRepository struct {
	store store.DocumentStore
}

func NewArchiveRepository(st store.DocumentStore) ArchiveRepository {
	return &archiveRepository{store: st}
}

func (r *archiveRepository) Put(ctx context.Context, id string, doc store.Doc) error {
	return r.store.Set(ctx, store.CollectionArchivedSales, id, doc)
}

func (r *archiveRepository) HasOriginal(ctx context.Context, originalID string) (bool, error) {
	docs, err := r.store.Query(ctx, store.CollectionArchivedSales,
		[]store.Filter{{Field: "original_id", Value: originalID}}, nil)
	if err != nil {
		return false, fmt.Errorf("query archive for original %s: %w", originalID, err)
	}
	return len(docs) > 0, nil
}

func (r *archiveRepository) List(ctx context.Context) ([]store.Document, error) {
	return r.store.Query(ctx, store.CollectionArchivedSales, nil,
		&store.OrderBy{Field: "archived_at", Desc: true})
}

func (r *archiveRepository) EnsureCollection(ctx context.Context) error {
	marker := store.Doc{
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"purpose":    "initialize archived_sales collection",
	}
	if err := r.store.Set(ctx, store.CollectionArchivedSales, "temp_init", marker); err != nil {
		return fmt.Errorf("create archive marker: %w", err)
	}
	return r.store.Delete(ctx, store.CollectionArchivedSales, "temp_init")
}
