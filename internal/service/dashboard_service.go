package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/caisseapp/backoffice/internal/cache"
	"github.com/caisseapp/backoffice/internal/dashboard"
	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
)

// DashboardService serves the dashboard snapshot, recomputing it from
// the full sales and products sets and keeping the result in a
// short-lived cache.
type DashboardService struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	stats    cache.StatsCache
}

func NewDashboardService(sales repository.SaleRepository, products repository.ProductRepository, stats cache.StatsCache) *DashboardService {
	if stats == nil {
		stats = cache.NewNoopStatsCache()
	}
	return &DashboardService{sales: sales, products: products, stats: stats}
}

func (s *DashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	if cached, ok, err := s.stats.Get(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("dashboard stats cache get failed")
	}

	sales, err := s.sales.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := dashboard.Aggregate(sales, products)

	if err := s.stats.Set(ctx, &stats); err != nil {
		log.Warn().Err(err).Msg("dashboard stats cache set failed")
	}
	return &stats, nil
}
