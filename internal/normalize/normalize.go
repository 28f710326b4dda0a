// Package normalize coerces heterogeneous stored sale documents into the
// canonical domain.SaleRecord. It is the only package allowed to branch
// on the stored shape of a field; everything downstream sees one type.
package normalize

import (
	"time"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/store"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Sale converts a stored document into a SaleRecord. A missing or
// unparseable date is substituted with now and flagged via DateDefaulted;
// a missing total defaults to price*quantity, while a stored nonzero
// total is kept as entered (bulk edits may override the product of price
// and quantity, and the stored figure is then authoritative).
func Sale(doc store.Document, now time.Time) domain.SaleRecord {
	sale := domain.SaleRecord{
		ID:       doc.ID,
		Product:  asString(doc.Data["product"]),
		Category: asString(doc.Data["category"]),
		Register: asString(doc.Data["register"]),
		Seller:   asString(doc.Data["seller"]),
		Quantity: asInt(doc.Data["quantity"]),
		Price:    asFloat(doc.Data["price"]),
	}

	date, ok := Date(doc.Data["date"])
	if !ok {
		date = now
		sale.DateDefaulted = true
	}
	sale.Date = date

	sale.Total = asFloat(doc.Data["total"])
	if sale.Total == 0 {
		sale.Total = sale.Price * float64(sale.Quantity)
	}

	if meta, ok := doc.Data["category_metadata"].(map[string]any); ok {
		sale.CategoryMetadata = &domain.CategoryMetadata{
			Category:      asString(meta["category"]),
			Subcategory:   asString(meta["subcategory"]),
			CategorizedAt: asString(meta["categorized_at"]),
			CategorizedBy: asString(meta["categorized_by"]),
		}
	}

	return sale
}

// Sales converts a query result, preserving order. The second return
// value counts records whose date had to be defaulted.
func Sales(docs []store.Document, now time.Time) ([]domain.SaleRecord, int) {
	out := make([]domain.SaleRecord, 0, len(docs))
	defaulted := 0
	for _, doc := range docs {
		sale := Sale(doc, now)
		if sale.DateDefaulted {
			defaulted++
		}
		out = append(out, sale)
	}
	return out, defaulted
}

// Date interprets a stored date value. Accepted shapes: time.Time,
// ISO-8601 / RFC3339 strings, plain YYYY-MM-DD strings, and unix epoch
// numbers in seconds or milliseconds.
func Date(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case float64:
		return epochTime(d), true
	case int64:
		return epochTime(float64(d)), true
	case int:
		return epochTime(float64(d)), true
	}
	return time.Time{}, false
}

// epochTime treats values above 1e12 as milliseconds, otherwise seconds.
func epochTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// Product converts a stored product document.
func Product(doc store.Document) domain.Product {
	p := domain.Product{
		ID:               doc.ID,
		Name:             asString(doc.Data["name"]),
		Category:         asString(doc.Data["category"]),
		Price:            asFloat(doc.Data["price"]),
		InitialStock:     asInt(doc.Data["initialStock"]),
		InitialStockDate: asString(doc.Data["initialStockDate"]),
		MinStock:         asInt(doc.Data["minStock"]),
		IsConfigured:     asBool(doc.Data["isConfigured"]),
		Stock:            asInt(doc.Data["stock"]),
		QuantitySold:     asInt(doc.Data["quantitySold"]),
		StockValue:       asFloat(doc.Data["stockValue"]),
	}

	if last, ok := Date(doc.Data["lastSale"]); ok {
		p.LastSale = &last
	}

	if details, ok := doc.Data["calculationDetails"].(map[string]any); ok {
		p.CalculationDetails = &domain.CalculationDetails{
			EffectiveDate:                  asString(details["effectiveDate"]),
			SalesIncluded:                  asInt(details["salesIncluded"]),
			SalesIgnored:                   asInt(details["salesIgnored"]),
			QuantitySoldAfterEffectiveDate: asInt(details["quantitySoldAfterEffectiveDate"]),
			DatesDefaulted:                 asInt(details["datesDefaulted"]),
		}
	}

	return p
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func asInt(v any) int {
	return int(asFloat(v))
}
