package domain

import (
	"fmt"
	"time"
)

// Product is a catalog entry. Sales reference products by the
// (Name, Category) pair rather than by ID, so that pair is the identity
// key when matching sales to products.
type Product struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Price            float64 `json:"price"`
	InitialStock     int     `json:"initialStock"`
	InitialStockDate string  `json:"initialStockDate"` // YYYY-MM-DD
	MinStock         int     `json:"minStock"`

	// IsConfigured marks a product whose stock settings were entered by a
	// user. Once true it never reverts; sync must not overwrite the manual
	// configuration with sales-derived estimates.
	IsConfigured bool `json:"isConfigured"`

	// Derived fields, recomputed by reconciliation/sync.
	Stock        int        `json:"stock"`
	QuantitySold int        `json:"quantitySold"`
	StockValue   float64    `json:"stockValue"`
	LastSale     *time.Time `json:"lastSale"`

	CalculationDetails *CalculationDetails `json:"calculationDetails,omitempty"`
}

// Key returns the identity key used to match this product against sales.
func (p Product) Key() string {
	return ProductKey(p.Name, p.Category)
}

// ProductKey builds the (name, category) identity key.
func ProductKey(name, category string) string {
	return name + "\x00" + category
}

// StockConfig is the user-provided stock configuration for a product.
type StockConfig struct {
	InitialStock     int    `json:"initialStock"`
	InitialStockDate string `json:"initialStockDate"` // YYYY-MM-DD
	MinStock         int    `json:"minStock"`
}

// Validate rejects malformed configuration before it reaches the
// reconciliation engine.
func (c StockConfig) Validate() error {
	if c.InitialStock < 0 {
		return ValidationError{Field: "initialStock", Message: "must not be negative"}
	}
	if c.MinStock < 0 {
		return ValidationError{Field: "minStock", Message: "must not be negative"}
	}
	if _, err := time.Parse("2006-01-02", c.InitialStockDate); err != nil {
		return ValidationError{Field: "initialStockDate", Message: "must be a YYYY-MM-DD date"}
	}
	return nil
}

// CalculationDetails is the audit trail of a reconciliation decision.
// It explains the derived stock figure and takes no part in further
// computation.
type CalculationDetails struct {
	EffectiveDate                  string `json:"effectiveDate"`
	SalesIncluded                  int    `json:"salesIncluded"`
	SalesIgnored                   int    `json:"salesIgnored"`
	QuantitySoldAfterEffectiveDate int    `json:"quantitySoldAfterEffectiveDate"`

	// DatesDefaulted counts sales whose date had to be substituted with
	// "now" by the normalizer. Those sales are always included, which
	// distorts the figure, so the count is carried here.
	DatesDefaulted int `json:"datesDefaulted,omitempty"`
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
