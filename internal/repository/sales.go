package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/normalize"
	"github.com/caisseapp/backoffice/internal/store"
)

// SaleRepository is the active-sales collection. Documents pass through
// the normalizer on the way out so callers only ever see canonical
// records.
type SaleRepository interface {
	// ListActive returns every active sale ordered by date descending.
	ListActive(ctx context.Context) ([]domain.SaleRecord, error)
	// ListForProduct returns all sales matching a product's (name,
	// category) identity key, unordered.
	ListForProduct(ctx context.Context, name, category string) ([]domain.SaleRecord, error)
	// GetDoc returns the raw stored document, archive copies must carry
	// every stored field untouched.
	GetDoc(ctx context.Context, id string) (store.Doc, error)
	AddBatch(ctx context.Context, sales []domain.SaleRecord) (int, error)
	Update(ctx context.Context, id string, fields store.Doc) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	UpdateBatch(ctx context.Context, fields map[string]store.Doc) error
}

type saleRepository struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewSaleRepository(st store.DocumentStore) SaleRepository {
	return &saleRepository{store: st, now: time.Now}
}

func (r *saleRepository) ListActive(ctx context.Context) ([]domain.SaleRecord, error) {
	docs, err := r.store.Query(ctx, store.CollectionSales, nil, &store.OrderBy{Field: "date", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	sales, defaulted := normalize.Sales(docs, r.now())
	if defaulted > 0 {
		log.Warn().Int("count", defaulted).Msg("sales with unusable dates defaulted to now")
	}
	return sales, nil
}

func (r *saleRepository) ListForProduct(ctx context.Context, name, category string) ([]domain.SaleRecord, error) {
	filters := []store.Filter{
		{Field: "product", Value: name},
		{Field: "category", Value: category},
	}
	docs, err := r.store.Query(ctx, store.CollectionSales, filters, nil)
	if err != nil {
		return nil, fmt.Errorf("list sales for %s/%s: %w", name, category, err)
	}

	sales, defaulted := normalize.Sales(docs, r.now())
	if defaulted > 0 {
		log.Warn().
			Str("product", name).
			Str("category", category).
			Int("count", defaulted).
			Msg("sales with unusable dates defaulted to now")
	}
	return sales, nil
}

func (r *saleRepository) GetDoc(ctx context.Context, id string) (store.Doc, error) {
	return r.store.Get(ctx, store.CollectionSales, id)
}

func (r *saleRepository) AddBatch(ctx context.Context, sales []domain.SaleRecord) (int, error) {
	batch := r.store.NewBatch()
	for _, sale := range sales {
		id := sale.ID
		if id == "" {
			id = store.NewID()
		}
		batch.Set(store.CollectionSales, id, saleDoc(sale))
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("add sales batch: %w", err)
	}
	return len(sales), nil
}

func (r *saleRepository) Update(ctx context.Context, id string, fields store.Doc) error {
	return r.store.Update(ctx, store.CollectionSales, id, fields)
}

func (r *saleRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.CollectionSales, id)
}

func (r *saleRepository) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, store.CollectionSales, id)
	if err == nil {
		return true, nil
	}
	if err == store.ErrNotFound {
		return false, nil
	}
	return false, err
}

func (r *saleRepository) UpdateBatch(ctx context.Context, fields map[string]store.Doc) error {
	if len(fields) == 0 {
		return nil
	}
	batch := r.store.NewBatch()
	for id, f := range fields {
		batch.Update(store.CollectionSales, id, f)
	}
	return batch.Commit(ctx)
}

func saleDoc(sale domain.SaleRecord) store.Doc {
	doc := store.Doc{
		"product":  sale.Product,
		"category": sale.Category,
		"register": sale.Register,
		"date":     sale.Date.UTC().Format(time.RFC3339),
		"seller":   sale.Seller,
		"quantity": sale.Quantity,
		"price":    sale.Price,
		"total":    sale.Total,
	}
	if sale.CategoryMetadata != nil {
		doc["category_metadata"] = map[string]any{
			"category":       sale.CategoryMetadata.Category,
			"subcategory":    sale.CategoryMetadata.Subcategory,
			"categorized_at": sale.CategoryMetadata.CategorizedAt,
			"categorized_by": sale.CategoryMetadata.CategorizedBy,
		}
	}
	return doc
}
