package domain

// ProductTotal is aggregated sale volume for one product name.
type ProductTotal struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SellerTotal is aggregated sale volume for one seller.
type SellerTotal struct {
	Seller   string  `json:"seller"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// RegisterTotal is aggregated sale volume for one register.
type RegisterTotal struct {
	Register string  `json:"register"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DailyTotal is aggregated sale volume for one calendar day.
type DailyTotal struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DashboardStats is the back-office dashboard snapshot. It is always
// recomputed wholesale from the full sales and products sets; there is no
// partial update path.
type DashboardStats struct {
	TotalSales       int     `json:"totalSales"` // record count, not quantity
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalProducts    int     `json:"totalProducts"`
	LowStockProducts int     `json:"lowStockProducts"`

	TopProducts         []ProductTotal  `json:"topProducts"`
	TopSellers          []SellerTotal   `json:"topSellers"`
	RegisterPerformance []RegisterTotal `json:"registerPerformance"`
	DailyTrend          []DailyTotal    `json:"dailyTrend"`

	RecentSales []SaleRecord `json:"recentSales"`
}

// Alert is a back-office notification, e.g. a low-stock warning.
type Alert struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

const (
	AlertTypeLowStock = "low-stock"

	AlertSeverityInfo    = "info"
	AlertSeverityWarning = "warning"
	AlertSeverityError   = "error"
)
