package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/caisseapp/backoffice/internal/cache"
	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/extract"
	"github.com/caisseapp/backoffice/internal/reconcile"
	"github.com/caisseapp/backoffice/internal/repository"
)

// reconcileWorkers bounds the parallel per-product reconciliation in
// RefreshAllStocks. Products are independent, so results land in a
// per-index slot and ordering is preserved without locking.
const reconcileWorkers = 4

// SyncResult reports the outcome of a product sync pass.
type SyncResult struct {
	Updated int `json:"updated"`
	Created int `json:"created"`
}

// ProductService owns the product catalog: syncing it from sales,
// applying user stock configuration through the reconciliation engine,
// and deleting products with an audit log.
type ProductService struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	alerts   repository.AlertRepository
	stats    cache.StatsCache
	now      func() time.Time
}

func NewProductService(products repository.ProductRepository, sales repository.SaleRepository, alerts repository.AlertRepository, stats cache.StatsCache) *ProductService {
	if stats == nil {
		stats = cache.NewNoopStatsCache()
	}
	return &ProductService{
		products: products,
		sales:    sales,
		alerts:   alerts,
		stats:    stats,
		now:      time.Now,
	}
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// SyncFromSales extracts a candidate catalog from the full sales set and
// reconciles it with the existing products: configured products keep
// their manual stock settings, unconfigured ones get heuristic stock,
// unseen ones are created empty. Finishes by refreshing low-stock
// alerts.
func (s *ProductService) SyncFromSales(ctx context.Context) (SyncResult, error) {
	sales, err := s.sales.ListActive(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	existing, err := s.products.List(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	candidates := extract.Extract(sales)
	plan := extract.Plan(candidates, existing, s.now())

	updated, created, err := s.products.ApplySyncPlan(ctx, plan)
	if err != nil {
		return SyncResult{}, err
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("updated", updated).
		Int("created", created).
		Msg("product sync finished")

	if err := s.refreshLowStockAlerts(ctx); err != nil {
		log.Warn().Err(err).Msg("low stock alert refresh failed")
	}

	s.invalidateStats(ctx)
	return SyncResult{Updated: updated, Created: created}, nil
}

// UpdateStockConfig stores user-provided stock settings for one product
// and reconciles its stock against every sale recorded for it. The
// product is configured from then on; sync passes will no longer touch
// its stock.
func (s *ProductService) UpdateStockConfig(ctx context.Context, productID string, cfg domain.StockConfig) (domain.Product, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Product{}, err
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	sales, err := s.sales.ListForProduct(ctx, product.Name, product.Category)
	if err != nil {
		return domain.Product{}, err
	}

	reconciled := reconcile.Reconcile(product, sales, cfg)
	reconciled.IsConfigured = true

	if err := s.products.SaveReconciled(ctx, reconciled); err != nil {
		return domain.Product{}, err
	}

	log.Info().
		Str("product", product.Name).
		Str("effective_date", cfg.InitialStockDate).
		Int("included", reconciled.CalculationDetails.SalesIncluded).
		Int("ignored", reconciled.CalculationDetails.SalesIgnored).
		Int("stock", reconciled.Stock).
		Msg("stock configuration applied")

	s.invalidateStats(ctx)
	return reconciled, nil
}

// RefreshAllStocks re-runs reconciliation for every configured product
// against the current sales set. Products have no cross dependencies, so
// the work is spread over a bounded worker group.
func (s *ProductService) RefreshAllStocks(ctx context.Context) (int, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return 0, err
	}
	sales, err := s.sales.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	salesByKey := make(map[string][]domain.SaleRecord)
	for _, sale := range sales {
		key := domain.ProductKey(sale.Product, sale.Category)
		salesByKey[key] = append(salesByKey[key], sale)
	}

	var configured []domain.Product
	for _, p := range products {
		if p.IsConfigured {
			configured = append(configured, p)
		}
	}
	if len(configured) == 0 {
		return 0, nil
	}

	reconciled := make([]domain.Product, len(configured))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileWorkers)
	for i, p := range configured {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cfg := domain.StockConfig{
				InitialStock:     p.InitialStock,
				InitialStockDate: p.InitialStockDate,
				MinStock:         p.MinStock,
			}
			reconciled[i] = reconcile.Reconcile(p, salesByKey[p.Key()], cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.products.SaveReconciledBatch(ctx, reconciled); err != nil {
		return 0, err
	}

	if err := s.refreshLowStockAlerts(ctx); err != nil {
		log.Warn().Err(err).Msg("low stock alert refresh failed")
	}
	s.invalidateStats(ctx)
	return len(reconciled), nil
}

// Delete removes a product after writing a deletion-log document.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.DeleteWithLog(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// refreshLowStockAlerts writes one alert per configured product at or
// below its minimum stock, skipping messages that already have an unread
// alert.
func (s *ProductService) refreshLowStockAlerts(ctx context.Context) error {
	if s.alerts == nil {
		return nil
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return err
	}

	existing, err := s.alerts.List(ctx)
	if err != nil {
		return err
	}
	unread := make(map[string]bool)
	for _, a := range existing {
		if !a.Read {
			unread[a.Message] = true
		}
	}

	var fresh []domain.Alert
	now := s.now().UTC().Format(time.RFC3339)
	for _, p := range products {
		if !p.IsConfigured || p.Stock > p.MinStock {
			continue
		}
		message := fmt.Sprintf("Low stock: %s (%d left, minimum %d)", p.Name, p.Stock, p.MinStock)
		if unread[message] {
			continue
		}
		fresh = append(fresh, domain.Alert{
			Type:      domain.AlertTypeLowStock,
			Message:   message,
			Severity:  domain.AlertSeverityWarning,
			CreatedAt: now,
		})
	}

	return s.alerts.AddBatch(ctx, fresh)
}

func (s *ProductService) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("dashboard stats cache invalidation failed")
	}
}
