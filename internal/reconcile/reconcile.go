// Package reconcile computes a product's current stock from its
// configured initial stock minus qualifying sales. It is a pure function
// over fully materialized inputs; persistence belongs to the caller.
package reconcile

import (
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
)

// Reconcile applies cfg to a product given every sale recorded for it.
// Sales are compared to the effective date at day granularity: both sides
// are truncated to midnight and a sale on the effective day itself counts.
// Stock is clamped at zero even when oversold.
//
// The returned product carries the full audit trail in
// CalculationDetails; calling Reconcile twice with identical inputs
// yields identical output.
func Reconcile(product domain.Product, sales []domain.SaleRecord, cfg domain.StockConfig) domain.Product {
	effective := effectiveDay(cfg.InitialStockDate)

	var (
		quantitySold   int
		salesIncluded  int
		datesDefaulted int
		lastSale       *time.Time
	)

	for _, sale := range sales {
		if sale.DateDefaulted {
			datesDefaulted++
		}
		if lastSale == nil || sale.Date.After(*lastSale) {
			d := sale.Date
			lastSale = &d
		}
		if startOfDay(sale.Date).Before(effective) {
			continue
		}
		quantitySold += sale.Quantity
		salesIncluded++
	}

	stock := cfg.InitialStock - quantitySold
	if stock < 0 {
		stock = 0
	}

	out := product
	out.InitialStock = cfg.InitialStock
	out.InitialStockDate = cfg.InitialStockDate
	out.MinStock = cfg.MinStock
	out.QuantitySold = quantitySold
	out.Stock = stock
	out.StockValue = domain.Round2(float64(stock) * product.Price)
	out.LastSale = lastSale
	out.CalculationDetails = &domain.CalculationDetails{
		EffectiveDate:                  cfg.InitialStockDate,
		SalesIncluded:                  salesIncluded,
		SalesIgnored:                   len(sales) - salesIncluded,
		QuantitySoldAfterEffectiveDate: quantitySold,
		DatesDefaulted:                 datesDefaulted,
	}
	return out
}

// effectiveDay parses the configured YYYY-MM-DD effective date. A
// malformed value is tolerated by defaulting to today rather than
// aborting; validation is expected to have rejected it upstream.
func effectiveDay(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return startOfDay(time.Now())
	}
	return t
}

// startOfDay buckets a timestamp by its wall-clock calendar day,
// discarding time of day and zone offset.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
