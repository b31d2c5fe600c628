// AngelaMos | 2026
// dto.go

package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	AmountMinor int64      `json:"amount_minor"`
	Amount      string     `json:"amount"`
	Status      Status     `json:"status"`
	DueAt       time.Time  `json:"due_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToInvoiceResponse(inv *Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          inv.ID,
		OrderID:     inv.OrderID,
		AmountMinor: inv.AmountMinor,
		Amount:      decimal.New(inv.AmountMinor, -2).StringFixed(2),
		Status:      inv.Status,
		DueAt:       inv.DueAt,
		PaidAt:      inv.PaidAt,
		CreatedAt:   inv.CreatedAt,
	}
}

func ToInvoiceResponseList(invoices []Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, ToInvoiceResponse(&invoices[i]))
	}
	return out
}
