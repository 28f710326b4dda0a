package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/extract"
	"github.com/caisseapp/backoffice/internal/normalize"
	"github.com/caisseapp/backoffice/internal/store"
)

// ProductRepository is the product catalog collection.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	// ApplySyncPlan commits an extraction sync plan in one batch and
	// returns how many products were updated and created.
	ApplySyncPlan(ctx context.Context, plan extract.SyncPlan) (updated, created int, err error)
	// SaveReconciled persists a reconciliation result and marks the
	// product as configured.
	SaveReconciled(ctx context.Context, p domain.Product) error
	// SaveReconciledBatch persists several reconciliation results in one
	// batch commit.
	SaveReconciledBatch(ctx context.Context, products []domain.Product) error
	// DeleteWithLog writes a deletion-log document before removing the
	// product.
	DeleteWithLog(ctx context.Context, id string) error
}

type productRepository struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewProductRepository(st store.DocumentStore) ProductRepository {
	return &productRepository{store: st, now: time.Now}
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.store.Query(ctx, store.CollectionProducts, nil, &store.OrderBy{Field: "name"})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, normalize.Product(doc))
	}
	return products, nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	doc, err := r.store.Get(ctx, store.CollectionProducts, id)
	if err != nil {
		return domain.Product{}, err
	}
	return normalize.Product(store.Document{ID: id, Data: doc}), nil
}

func (r *productRepository) ApplySyncPlan(ctx context.Context, plan extract.SyncPlan) (int, int, error) {
	batch := r.store.NewBatch()

	for _, update := range plan.ToUpdate {
		fields := store.Doc{
			"quantitySold": update.QuantitySold,
		}
		if update.LastSale != nil {
			fields["lastSale"] = update.LastSale.UTC().Format(time.RFC3339)
		}
		if update.Stock != nil {
			fields["stock"] = *update.Stock
			fields["stockValue"] = *update.StockValue
		}
		batch.Update(store.CollectionProducts, update.ProductID, fields)
	}

	for _, p := range plan.ToCreate {
		id := p.ID
		if id == "" {
			id = store.NewID()
		}
		batch.Set(store.CollectionProducts, id, productDoc(p))
	}

	if err := batch.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("apply sync plan: %w", err)
	}
	return len(plan.ToUpdate), len(plan.ToCreate), nil
}

func (r *productRepository) SaveReconciled(ctx context.Context, p domain.Product) error {
	if err := r.store.Update(ctx, store.CollectionProducts, p.ID, reconciledFields(p, r.now())); err != nil {
		return fmt.Errorf("save reconciled product %s: %w", p.ID, err)
	}
	return nil
}

func (r *productRepository) SaveReconciledBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	batch := r.store.NewBatch()
	now := r.now()
	for _, p := range products {
		batch.Update(store.CollectionProducts, p.ID, reconciledFields(p, now))
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("save reconciled products: %w", err)
	}
	return nil
}

func (r *productRepository) DeleteWithLog(ctx context.Context, id string) error {
	doc, err := r.store.Get(ctx, store.CollectionProducts, id)
	if err != nil {
		return err
	}

	logDoc := store.Doc{
		"productId":       id,
		"productName":     doc["name"],
		"productCategory": doc["category"],
		"deletedAt":       r.now().UTC().Format(time.RFC3339),
		"productData":     map[string]any(doc),
	}
	if err := r.store.Set(ctx, store.CollectionProductDeletions, store.NewID(), logDoc); err != nil {
		return fmt.Errorf("write product deletion log: %w", err)
	}

	return r.store.Delete(ctx, store.CollectionProducts, id)
}

func reconciledFields(p domain.Product, now time.Time) store.Doc {
	fields := store.Doc{
		"initialStock":     p.InitialStock,
		"initialStockDate": p.InitialStockDate,
		"minStock":         p.MinStock,
		"quantitySold":     p.QuantitySold,
		"stock":            p.Stock,
		"stockValue":       p.StockValue,
		"isConfigured":     true,
		"lastUpdated":      now.UTC().Format(time.RFC3339),
	}
	if p.LastSale != nil {
		fields["lastSale"] = p.LastSale.UTC().Format(time.RFC3339)
	}
	if p.CalculationDetails != nil {
		fields["calculationDetails"] = map[string]any{
			"effectiveDate":                  p.CalculationDetails.EffectiveDate,
			"salesIncluded":                  p.CalculationDetails.SalesIncluded,
			"salesIgnored":                   p.CalculationDetails.SalesIgnored,
			"quantitySoldAfterEffectiveDate": p.CalculationDetails.QuantitySoldAfterEffectiveDate,
			"datesDefaulted":                 p.CalculationDetails.DatesDefaulted,
		}
	}
	return fields
}

func productDoc(p domain.Product) store.Doc {
	doc := store.Doc{
		"name":             p.Name,
		"category":         p.Category,
		"price":            p.Price,
		"initialStock":     p.InitialStock,
		"initialStockDate": p.InitialStockDate,
		"minStock":         p.MinStock,
		"isConfigured":     p.IsConfigured,
		"stock":            p.Stock,
		"quantitySold":     p.QuantitySold,
		"stockValue":       p.StockValue,
	}
	if p.LastSale != nil {
		doc["lastSale"] = p.LastSale.UTC().Format(time.RFC3339)
	}
	return doc
}
