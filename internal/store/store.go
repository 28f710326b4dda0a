package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// Collection names used by the back-office.
const (
	CollectionSales            = "register_sales"
	CollectionArchivedSales    = "archived_sales"
	CollectionProducts         = "products"
	CollectionAlerts           = "alerts"
	CollectionProductDeletions = "product_deletions"
)

// ErrNotFound is returned by Get when no document exists under the given
// collection and id.
var ErrNotFound = errors.New("document not found")

// Doc is a schemaless document as stored. Values are the usual JSON
// scalars plus nested maps/slices.
type Doc map[string]any

// Document pairs a stored document with its id.
type Document struct {
	ID   string
	Data Doc
}

// Filter is an equality constraint on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// OrderBy sorts query results by a top-level field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Batch accumulates writes that commit atomically in a single call.
// Atomicity holds only within one Commit, never across sequential batches.
type Batch interface {
	Set(collection, id string, doc Doc)
	Update(collection, id string, fields Doc)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// DocumentStore is the transactional key-value store the back-office is
// built against. The hosted service behind it is opaque: the core only
// relies on query-by-field, point reads/writes, and batched commits.
type DocumentStore interface {
	Query(ctx context.Context, collection string, filters []Filter, order *OrderBy) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Doc, error)
	Set(ctx context.Context, collection, id string, doc Doc) error
	Update(ctx context.Context, collection, id string, fields Doc) error
	Delete(ctx context.Context, collection, id string) error
	NewBatch() Batch
}

// NewID returns a random 20-byte hex document id.
func NewID() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
