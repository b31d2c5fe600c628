// AngelaMos | 2026
// entity.go

package invoice

import (
	"time"
)

type Status string

const (
	StatusPaid   Status = "PAID"
	StatusUnpaid Status = "UNPAID"
	StatusVoid   Status = "VOID"
)

type Invoice struct {
	ID          string     `db:"id"`
	OrderID     string     `db:"order_id"`
	UserID      string     `db:"user_id"`
	AmountMinor int64      `db:"amount_minor"`
	Status      Status     `db:"status"`
	DueAt       time.Time  `db:"due_at"`
	PaidAt      *time.Time `db:"paid_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
