// Package extract derives a candidate product catalog from raw sales and
// plans its reconciliation against already-configured products. Both
// functions are pure; the service layer persists the resulting plan.
package extract

import (
	"math"
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
)

// Defaults for brand-new auto-extracted products.
const (
	defaultMinStock = 5

	// stockEstimateFactor scales total quantity sold into an initial
	// stock guess for products nobody has configured yet.
	stockEstimateFactor = 1.5
	stockEstimateFloor  = 10
)

// Candidate is a product derived from sales data. Its price is a
// quantity-weighted running average over the sales in arrival order:
// processing order can shift rounding in the low bits but not the
// converged value.
type Candidate struct {
	Name         string
	Category     string
	Price        float64
	QuantitySold int
	LastSale     *time.Time

	// EstimatedInitialStock seeds stock for unconfigured products. It is
	// a preview heuristic only and is never persisted for brand-new
	// records (those start at zero until someone configures them).
	EstimatedInitialStock int
}

// Key returns the (name, category) identity key.
func (c Candidate) Key() string {
	return domain.ProductKey(c.Name, c.Category)
}

// Extract groups sales by (product name, category) and accumulates one
// candidate per group in first-encountered order. A malformed sale — no
// product name or non-positive quantity — contributes nothing to its
// group but never aborts the batch.
func Extract(sales []domain.SaleRecord) []Candidate {
	index := make(map[string]int)
	var candidates []Candidate

	for _, sale := range sales {
		if sale.Product == "" || sale.Quantity <= 0 {
			continue
		}

		key := domain.ProductKey(sale.Product, sale.Category)
		i, seen := index[key]
		if !seen {
			i = len(candidates)
			index[key] = i
			candidates = append(candidates, Candidate{
				Name:     sale.Product,
				Category: sale.Category,
				Price:    sale.Price,
			})
		}

		c := &candidates[i]
		c.QuantitySold += sale.Quantity
		if seen {
			// Running quantity-weighted average, incorporating this sale.
			totalValue := c.Price*float64(c.QuantitySold-sale.Quantity) + sale.Price*float64(sale.Quantity)
			c.Price = totalValue / float64(c.QuantitySold)
		}
		if c.LastSale == nil || sale.Date.After(*c.LastSale) {
			d := sale.Date
			c.LastSale = &d
		}
	}

	for i := range candidates {
		candidates[i].EstimatedInitialStock = estimateInitialStock(candidates[i].QuantitySold)
	}

	return candidates
}

func estimateInitialStock(quantitySold int) int {
	estimate := int(math.Ceil(float64(quantitySold) * stockEstimateFactor))
	if estimate < stockEstimateFloor {
		return stockEstimateFloor
	}
	return estimate
}

// ProductUpdate is a planned update to an existing product. Stock and
// StockValue are nil for configured products: manual configuration is
// authoritative and sync must never overwrite it with estimates.
type ProductUpdate struct {
	ProductID    string
	QuantitySold int
	LastSale     *time.Time
	Stock        *int
	StockValue   *float64
}

// SyncPlan is the outcome of matching candidates against the existing
// catalog.
type SyncPlan struct {
	ToUpdate []ProductUpdate
	ToCreate []domain.Product
}

// Plan matches candidates to existing products by (name, category).
//   - matched + configured: only quantitySold/lastSale are refreshed.
//   - matched + unconfigured: stock and stockValue are recomputed from
//     the heuristic estimate.
//   - unmatched: a new unconfigured product is created with zero stock;
//     the heuristic stays a preview value and is not persisted.
func Plan(candidates []Candidate, existing []domain.Product, today time.Time) SyncPlan {
	byKey := make(map[string]domain.Product, len(existing))
	for _, p := range existing {
		byKey[p.Key()] = p
	}

	var plan SyncPlan
	for _, c := range candidates {
		current, ok := byKey[c.Key()]
		if !ok {
			plan.ToCreate = append(plan.ToCreate, domain.Product{
				Name:             c.Name,
				Category:         c.Category,
				Price:            c.Price,
				InitialStock:     0,
				InitialStockDate: today.Format("2006-01-02"),
				MinStock:         defaultMinStock,
				IsConfigured:     false,
				Stock:            0,
				QuantitySold:     c.QuantitySold,
				StockValue:       0,
				LastSale:         c.LastSale,
			})
			continue
		}

		update := ProductUpdate{
			ProductID:    current.ID,
			QuantitySold: c.QuantitySold,
			LastSale:     c.LastSale,
		}
		if !current.IsConfigured {
			stock := c.EstimatedInitialStock - c.QuantitySold
			if stock < 0 {
				stock = 0
			}
			value := domain.Round2(float64(stock) * c.Price)
			update.Stock = &stock
			update.StockValue = &value
		}
		plan.ToUpdate = append(plan.ToUpdate, update)
	}

	return plan
}
