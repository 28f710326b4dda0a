package reconcile

import (
	"testing"
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
)

func sale(day string, qty int) domain.SaleRecord {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return domain.SaleRecord{Date: d, Quantity: qty}
}

func TestReconcileEffectiveDateBoundary(t *testing.T) {
	product := domain.Product{ID: "p1", Name: "Espresso", Price: 2.0}
	cfg := domain.StockConfig{
		InitialStock:     100,
		InitialStockDate: "2025-07-01",
		MinStock:         5,
	}
	sales := []domain.SaleRecord{
		sale("2025-06-29", 3),  // before the effective day, ignored
		sale("2025-07-01", 10), // on the effective day, counts
		sale("2025-07-03", 5),
	}

	got := Reconcile(product, sales, cfg)

	if got.QuantitySold != 15 {
		t.Errorf("QuantitySold = %d, want 15", got.QuantitySold)
	}
	if got.Stock != 85 {
		t.Errorf("Stock = %d, want 85", got.Stock)
	}
	if got.StockValue != 170 {
		t.Errorf("StockValue = %v, want 170", got.StockValue)
	}

	d := got.CalculationDetails
	if d == nil {
		t.Fatal("missing calculation details")
	}
	if d.SalesIncluded != 2 || d.SalesIgnored != 1 {
		t.Errorf("included/ignored = %d/%d, want 2/1", d.SalesIncluded, d.SalesIgnored)
	}
	if d.SalesIncluded+d.SalesIgnored != len(sales) {
		t.Error("included plus ignored must cover every sale")
	}
	if d.EffectiveDate != "2025-07-01" {
		t.Errorf("EffectiveDate = %q", d.EffectiveDate)
	}
}

func TestReconcileTimeOfDayIgnored(t *testing.T) {
	// A sale at 23:59 on the effective day still counts: the comparison
	// is at day granularity.
	product := domain.Product{Price: 1.0}
	cfg := domain.StockConfig{InitialStock: 10, InitialStockDate: "2025-07-01"}
	sales := []domain.SaleRecord{
		{Date: time.Date(2025, 7, 1, 23, 59, 0, 0, time.UTC), Quantity: 4},
		{Date: time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC), Quantity: 4},
	}

	got := Reconcile(product, sales, cfg)
	if got.QuantitySold != 4 {
		t.Errorf("QuantitySold = %d, want 4", got.QuantitySold)
	}
	if got.Stock != 6 {
		t.Errorf("Stock = %d, want 6", got.Stock)
	}
}

func TestReconcileClampsAtZero(t *testing.T) {
	product := domain.Product{Price: 3.0}
	cfg := domain.StockConfig{InitialStock: 5, InitialStockDate: "2025-07-01"}
	sales := []domain.SaleRecord{sale("2025-07-02", 20)}

	got := Reconcile(product, sales, cfg)
	if got.Stock != 0 {
		t.Errorf("Stock = %d, want 0", got.Stock)
	}
	if got.StockValue != 0 {
		t.Errorf("StockValue = %v, want 0", got.StockValue)
	}
	// The oversell remains visible in the sold count.
	if got.QuantitySold != 20 {
		t.Errorf("QuantitySold = %d, want 20", got.QuantitySold)
	}
}

func TestReconcileNoSales(t *testing.T) {
	product := domain.Product{Price: 2.5}
	cfg := domain.StockConfig{InitialStock: 40, InitialStockDate: "2025-07-01"}

	got := Reconcile(product, nil, cfg)
	if got.Stock != 40 || got.QuantitySold != 0 {
		t.Errorf("stock/sold = %d/%d, want 40/0", got.Stock, got.QuantitySold)
	}
	if got.LastSale != nil {
		t.Error("LastSale should be nil with no sales")
	}
	if got.StockValue != 100 {
		t.Errorf("StockValue = %v, want 100", got.StockValue)
	}
}

func TestReconcileTracksLastSaleAcrossBoundary(t *testing.T) {
	// LastSale considers every sale, including ones before the effective
	// date that are excluded from the stock math.
	product := domain.Product{Price: 1.0}
	cfg := domain.StockConfig{InitialStock: 10, InitialStockDate: "2025-07-01"}
	sales := []domain.SaleRecord{
		sale("2025-07-02", 1),
		sale("2025-08-15", 2),
		sale("2025-06-01", 3),
	}

	got := Reconcile(product, sales, cfg)
	if got.LastSale == nil || got.LastSale.Month() != time.August {
		t.Errorf("LastSale = %v, want August", got.LastSale)
	}
	if got.QuantitySold != 3 {
		t.Errorf("QuantitySold = %d, want 3", got.QuantitySold)
	}
}

func TestReconcileCountsDefaultedDates(t *testing.T) {
	product := domain.Product{Price: 1.0}
	cfg := domain.StockConfig{InitialStock: 10, InitialStockDate: "2025-07-01"}
	s := sale("2025-07-02", 1)
	s.DateDefaulted = true

	got := Reconcile(product, []domain.SaleRecord{s}, cfg)
	if got.CalculationDetails.DatesDefaulted != 1 {
		t.Errorf("DatesDefaulted = %d, want 1", got.CalculationDetails.DatesDefaulted)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	product := domain.Product{ID: "p1", Price: 2.0}
	cfg := domain.StockConfig{InitialStock: 100, InitialStockDate: "2025-07-01", MinStock: 5}
	sales := []domain.SaleRecord{
		sale("2025-06-29", 3),
		sale("2025-07-01", 10),
		sale("2025-07-03", 5),
	}

	first := Reconcile(product, sales, cfg)
	second := Reconcile(first, sales, cfg)

	if first.Stock != second.Stock || first.QuantitySold != second.QuantitySold || first.StockValue != second.StockValue {
		t.Errorf("re-reconcile drifted: %+v vs %+v", first, second)
	}
	if *first.CalculationDetails != *second.CalculationDetails {
		t.Errorf("details drifted: %+v vs %+v", first.CalculationDetails, second.CalculationDetails)
	}
}
