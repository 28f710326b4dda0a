package domain

import "time"

// CategoryMetadata records how and when a sale was (re)categorized.
type CategoryMetadata struct {
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory,omitempty"`
	CategorizedAt string `json:"categorized_at"`
	CategorizedBy string `json:"categorized_by"`
}

// SaleRecord is a register sale in canonical in-memory form. Raw store
// documents are coerced into this shape by the normalize package; every
// other package depends only on this type.
type SaleRecord struct {
	ID       string    `json:"id"`
	Product  string    `json:"product"`
	Category string    `json:"category"`
	Register string    `json:"register"`
	Date     time.Time `json:"date"`
	Seller   string    `json:"seller"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Total    float64   `json:"total"`

	CategoryMetadata *CategoryMetadata `json:"category_metadata,omitempty"`

	// DateDefaulted is set by the normalizer when the stored date was
	// missing or unparseable and "now" was substituted. Such sales still
	// count toward reconciliation but the substitution is surfaced, never
	// silently absorbed.
	DateDefaulted bool `json:"-"`
}

// ArchiveReason values accepted on archived sales.
const (
	ArchiveReasonUserDeleted     = "user_deleted"
	ArchiveReasonSystemDeleted   = "system_deleted"
	ArchiveReasonDuplicate       = "duplicate"
	ArchiveReasonErrorCorrection = "error_correction"
)

// ArchiveResult reports the itemized outcome of an archive batch.
// Success is true when at least one sale was archived, or when nothing
// was archived but every miss was a plain not-found (nothing to do).
type ArchiveResult struct {
	Success       bool     `json:"success"`
	SuccessCount  int      `json:"success_count"`
	NotFoundCount int      `json:"not_found_count"`
	ErrorCount    int      `json:"error_count"`
	Errors        []string `json:"errors"`
}

// CategorizeResult reports the outcome of a bulk categorization.
type CategorizeResult struct {
	UpdatedCount  int      `json:"updated_count"`
	NotFoundCount int      `json:"not_found_count"`
	NotFoundIDs   []string `json:"not_found_ids,omitempty"`
}
