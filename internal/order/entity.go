// AngelaMos | 2026
// entity.go

package order

import (
	"time"
)

type Status string

const (
	StatusPendingPayment       Status = "PENDING_PAYMENT"
	StatusAwaitingVerification Status = "AWAITING_VERIFICATION"
	// StatusProvisioning is held only while an approval is talking to the
	// panel. It is never a resting state.
	StatusProvisioning Status = "PROVISIONING"
	StatusCompleted    Status = "COMPLETED"
	StatusDenied       Status = "DENIED"
	StatusCancelled    Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPendingPayment: {
		StatusAwaitingVerification,
		StatusCancelled,
		StatusDenied,
	},
	StatusAwaitingVerification: {
		StatusProvisioning,
		StatusDenied,
		StatusCancelled,
	},
	StatusProvisioning: {
		StatusCompleted,
		StatusAwaitingVerification,
	},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusAwaitingVerification, StatusProvisioning,
		StatusCompleted, StatusDenied, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf lists every status that may legally move to target.
func SourcesOf(target Status) []Status {
	var out []Status
	for _, from := range []Status{
		StatusPendingPayment,
		StatusAwaitingVerification,
		StatusProvisioning,
	} {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

type Order struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	ProductID   string    `db:"product_id"`
	AmountMinor int64     `db:"amount_minor"`
	Status      Status    `db:"status"`
	PaymentRef  *string   `db:"payment_ref"`
	AdminNote   *string   `db:"admin_note"`
	ServerID    *string   `db:"server_id"`
	InvoiceID   *string   `db:"invoice_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// View is an order joined with the names the review surfaces display.
type View struct {
	Order
	UserEmail    string  `db:"user_email"`
	UserName     string  `db:"user_name"`
	ProductName  string  `db:"product_name"`
	ServerStatus *string `db:"server_status"`
	ServerPanel  *int64  `db:"server_panel_id"`
}

// Fields are the optional columns written alongside a status change.
type Fields struct {
	PaymentRef *string
	AdminNote  *string
	ServerID   *string
	InvoiceID  *string
}

type Stats struct {
	TotalOrders     int   `db:"total_orders"`
	PendingOrders   int   `db:"pending_orders"`
	CompletedOrders int   `db:"completed_orders"`
	RevenueMinor    int64 `db:"revenue_minor"`
}
