// AngelaMos | 2026
// repository.go

package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumennodes/portal/internal/core"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	GetByOrderID(ctx context.Context, orderID string) (*Invoice, error)
	ListByUser(ctx context.Context, userID string) ([]Invoice, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const invoiceColumns = `id, order_id, user_id, amount_minor, status, due_at,
		       paid_at, created_at`

// Create fails with ErrDuplicateKey when the order already has an invoice.
func (r *repository) Create(ctx context.Context, inv *Invoice) error {
	query := `
		INSERT INTO invoices (id, order_id, user_id, amount_minor, status,
		                      due_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &inv.CreatedAt, query,
		inv.ID, inv.OrderID, inv.UserID, inv.AmountMinor, inv.Status,
		inv.DueAt, inv.PaidAt,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create invoice: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create invoice: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Invoice, error) {
	if err := core.CheckID("invoice", id); err != nil {
		return nil, err
	}

	return r.getOne(ctx, "get invoice",
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *repository) GetByOrderID(
	ctx context.Context,
	orderID string,
) (*Invoice, error) {
	return r.getOne(ctx, "get invoice by order",
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var invoices []Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, userID); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	return invoices, nil
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	arg any,
) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &inv, nil
}
