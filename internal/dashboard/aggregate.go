// Package dashboard computes the back-office dashboard snapshot from
// fully materialized sales and products. Stats are always recomputed
// wholesale; there is no incremental path.
package dashboard

import (
	"sort"

	"github.com/caisseapp/backoffice/internal/domain"
)

const (
	topProductLimit  = 5
	recentSalesLimit = 10
)

// Aggregate builds DashboardStats from the complete snapshot.
//
// Revenue figures sum each sale's stored total rather than price times
// quantity, so bulk-edit overrides are respected. RecentSales takes the
// first entries of the input as-is: the sales feed is ordered by date
// descending at the query and the aggregator does not re-sort it.
// Top-product ties keep first-encountered order; no secondary sort key
// is defined.
func Aggregate(sales []domain.SaleRecord, products []domain.Product) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalSales:    len(sales),
		TotalProducts: len(products),
	}

	for _, p := range products {
		if p.IsConfigured && p.Stock <= p.MinStock {
			stats.LowStockProducts++
		}
	}

	byProduct := newGrouping()
	bySeller := newGrouping()
	byRegister := newGrouping()
	byDay := newGrouping()

	for _, sale := range sales {
		stats.TotalRevenue += sale.Total
		byProduct.add(sale.Product, sale)
		bySeller.add(sale.Seller, sale)
		byRegister.add(sale.Register, sale)
		byDay.add(sale.Date.Format("2006-01-02"), sale)
	}

	top := byProduct.entries()
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Quantity > top[j].Quantity
	})
	if len(top) > topProductLimit {
		top = top[:topProductLimit]
	}
	stats.TopProducts = make([]domain.ProductTotal, 0, len(top))
	for _, e := range top {
		stats.TopProducts = append(stats.TopProducts, domain.ProductTotal(e))
	}

	sellers := bySeller.entries()
	sort.SliceStable(sellers, func(i, j int) bool {
		return sellers[i].Quantity > sellers[j].Quantity
	})
	if len(sellers) > topProductLimit {
		sellers = sellers[:topProductLimit]
	}
	stats.TopSellers = make([]domain.SellerTotal, 0, len(sellers))
	for _, e := range sellers {
		stats.TopSellers = append(stats.TopSellers, domain.SellerTotal{
			Seller: e.Product, Quantity: e.Quantity, Revenue: e.Revenue,
		})
	}

	stats.RegisterPerformance = make([]domain.RegisterTotal, 0)
	for _, e := range byRegister.entries() {
		stats.RegisterPerformance = append(stats.RegisterPerformance, domain.RegisterTotal{
			Register: e.Product, Quantity: e.Quantity, Revenue: e.Revenue,
		})
	}

	stats.DailyTrend = make([]domain.DailyTotal, 0)
	for _, e := range byDay.entries() {
		stats.DailyTrend = append(stats.DailyTrend, domain.DailyTotal{
			Date: e.Product, Quantity: e.Quantity, Revenue: e.Revenue,
		})
	}

	recent := sales
	if len(recent) > recentSalesLimit {
		recent = recent[:recentSalesLimit]
	}
	stats.RecentSales = append(make([]domain.SaleRecord, 0, len(recent)), recent...)

	return stats
}

// grouping accumulates quantity and revenue per key in first-encountered
// order, which is also the stable tie-break order for top-N lists.
type grouping struct {
	index  map[string]int
	totals []domain.ProductTotal
}

func newGrouping() *grouping {
	return &grouping{index: make(map[string]int)}
}

func (g *grouping) add(key string, sale domain.SaleRecord) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.totals)
		g.index[key] = i
		g.totals = append(g.totals, domain.ProductTotal{Product: key})
	}
	g.totals[i].Quantity += sale.Quantity
	g.totals[i].Revenue += sale.Total
}

func (g *grouping) entries() []domain.ProductTotal {
	return append([]domain.ProductTotal(nil), g.totals...)
}
