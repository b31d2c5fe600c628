// AngelaMos | 2026
// event.go

package notify

import (
	"github.com/shopspring/decimal"
)

// OrderPlaced is the summary staff see when a new order arrives.
type OrderPlaced struct {
	OrderID       string
	CustomerEmail string
	CustomerName  string
	PlanName      string
	AmountMinor   int64
	RAM           string
	CPU           string
	Disk          string
}

func (e OrderPlaced) Amount() string {
	return decimal.New(e.AmountMinor, -2).StringFixed(2)
}
