package extract

import (
	"math"
	"testing"
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
)

func rec(product, category string, qty int, price float64, day string) domain.SaleRecord {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return domain.SaleRecord{
		Product:  product,
		Category: category,
		Quantity: qty,
		Price:    price,
		Date:     d,
	}
}

func TestExtractWeightedAveragePrice(t *testing.T) {
	sales := []domain.SaleRecord{
		rec("Espresso", "Drinks", 2, 2.00, "2025-07-01"),
		rec("Espresso", "Drinks", 4, 2.60, "2025-07-02"),
	}

	got := Extract(sales)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	c := got[0]
	if c.QuantitySold != 6 {
		t.Errorf("QuantitySold = %d, want 6", c.QuantitySold)
	}
	// (2*2.00 + 4*2.60) / 6 = 2.40
	if math.Abs(c.Price-2.40) > 1e-9 {
		t.Errorf("Price = %v, want 2.40", c.Price)
	}
	if c.LastSale == nil || c.LastSale.Day() != 2 {
		t.Errorf("LastSale = %v, want July 2", c.LastSale)
	}
}

func TestExtractSkipsMalformedSales(t *testing.T) {
	sales := []domain.SaleRecord{
		rec("", "Drinks", 3, 2.00, "2025-07-01"),
		rec("Espresso", "Drinks", 0, 2.00, "2025-07-01"),
		rec("Espresso", "Drinks", -1, 2.00, "2025-07-01"),
		rec("Espresso", "Drinks", 2, 2.00, "2025-07-01"),
	}

	got := Extract(sales)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].QuantitySold != 2 {
		t.Errorf("QuantitySold = %d, want 2 (malformed sales must not contribute)", got[0].QuantitySold)
	}
}

func TestExtractSeparatesByCategory(t *testing.T) {
	sales := []domain.SaleRecord{
		rec("Cake", "Food", 1, 4.00, "2025-07-01"),
		rec("Cake", "Desserts", 1, 4.00, "2025-07-01"),
	}

	got := Extract(sales)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2 (same name, different category)", len(got))
	}
	// First-encountered order.
	if got[0].Category != "Food" || got[1].Category != "Desserts" {
		t.Errorf("order = %q, %q", got[0].Category, got[1].Category)
	}
}

func TestEstimateInitialStock(t *testing.T) {
	tests := []struct {
		sold int
		want int
	}{
		{0, 10},
		{6, 10},  // ceil(9) = 9, floored at 10
		{7, 11},  // ceil(10.5) = 11
		{20, 30},
		{100, 150},
	}
	for _, tt := range tests {
		if got := estimateInitialStock(tt.sold); got != tt.want {
			t.Errorf("estimateInitialStock(%d) = %d, want %d", tt.sold, got, tt.want)
		}
	}
}

func TestPlanConfiguredProductKeepsManualStock(t *testing.T) {
	today := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	last := time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{{
		Name: "Espresso", Category: "Drinks", Price: 2.5,
		QuantitySold: 30, LastSale: &last, EstimatedInitialStock: 45,
	}}
	existing := []domain.Product{{
		ID: "p1", Name: "Espresso", Category: "Drinks",
		IsConfigured: true, InitialStock: 100, Stock: 70,
	}}

	plan := Plan(candidates, existing, today)
	if len(plan.ToCreate) != 0 || len(plan.ToUpdate) != 1 {
		t.Fatalf("plan = %d creates, %d updates", len(plan.ToCreate), len(plan.ToUpdate))
	}
	u := plan.ToUpdate[0]
	if u.ProductID != "p1" || u.QuantitySold != 30 {
		t.Errorf("update = %+v", u)
	}
	if u.Stock != nil || u.StockValue != nil {
		t.Error("sync must not touch stock on a configured product")
	}
}

func TestPlanUnconfiguredProductGetsHeuristicStock(t *testing.T) {
	today := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{{
		Name: "Espresso", Category: "Drinks", Price: 2.0,
		QuantitySold: 20, EstimatedInitialStock: 30,
	}}
	existing := []domain.Product{{
		ID: "p1", Name: "Espresso", Category: "Drinks", IsConfigured: false,
	}}

	plan := Plan(candidates, existing, today)
	u := plan.ToUpdate[0]
	if u.Stock == nil || *u.Stock != 10 {
		t.Fatalf("Stock = %v, want 10", u.Stock)
	}
	if u.StockValue == nil || *u.StockValue != 20 {
		t.Errorf("StockValue = %v, want 20", u.StockValue)
	}
}

func TestPlanCreatesNewProductWithZeroStock(t *testing.T) {
	today := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{{
		Name: "Muffin", Category: "Food", Price: 3.0,
		QuantitySold: 8, EstimatedInitialStock: 12,
	}}

	plan := Plan(candidates, nil, today)
	if len(plan.ToCreate) != 1 {
		t.Fatalf("creates = %d, want 1", len(plan.ToCreate))
	}
	p := plan.ToCreate[0]
	if p.Stock != 0 || p.InitialStock != 0 {
		t.Error("new products start with zero stock; the estimate is preview only")
	}
	if p.IsConfigured {
		t.Error("new products must not be marked configured")
	}
	if p.MinStock != 5 {
		t.Errorf("MinStock = %d, want 5", p.MinStock)
	}
	if p.InitialStockDate != "2025-07-10" {
		t.Errorf("InitialStockDate = %q", p.InitialStockDate)
	}
	if p.QuantitySold != 8 {
		t.Errorf("QuantitySold = %d, want 8", p.QuantitySold)
	}
}
