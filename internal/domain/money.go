package domain

import "github.com/shopspring/decimal"

// Round2 rounds a currency amount to two decimal places. Stock values and
// export figures go through this so float artifacts never reach the store.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
