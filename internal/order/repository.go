// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lumennodes/portal/internal/core"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetView(ctx context.Context, id string) (*View, error)
	ListByUser(ctx context.Context, userID string) ([]View, error)
	List(ctx context.Context, params ListParams) ([]View, int, error)
	Transition(
		ctx context.Context,
		id string,
		from []Status,
		to Status,
		fields Fields,
	) (*Order, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const orderColumns = `o.id, o.user_id, o.product_id, o.amount_minor, o.status,
		       o.payment_ref, o.admin_note, o.server_id, o.invoice_id,
		       o.created_at, o.updated_at`

const viewSelect = `SELECT ` + orderColumns + `,
		       u.email AS user_email, u.name AS user_name,
		       p.name AS product_name,
		       s.status AS server_status, s.panel_id AS server_panel_id
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN products p ON p.id = o.product_id
		LEFT JOIN servers s ON s.id = o.server_id`

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, user_id, product_id, amount_minor, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, o, query,
		o.ID, o.UserID, o.ProductID, o.AmountMinor, o.Status,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	if err := core.CheckID("order", id); err != nil {
		return nil, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &o, nil
}

func (r *repository) GetView(ctx context.Context, id string) (*View, error) {
	if err := core.CheckID("order", id); err != nil {
		return nil, err
	}

	var v View
	err := r.db.GetContext(ctx, &v, viewSelect+` WHERE o.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order view: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order view: %w", err)
	}

	return &v, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]View, error) {
	var views []View
	err := r.db.SelectContext(ctx, &views,
		viewSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}

	return views, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]View, int, error) {
	where := ` WHERE ($1 = '' OR o.status = $1)`

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM orders o`+where, string(params.Status))
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var views []View
	err = r.db.SelectContext(ctx, &views,
		viewSelect+where+` ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`,
		string(params.Status), params.PageSize, params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return views, total, nil
}

// Transition is the only way an order's status changes. The update lands
// only if the row is still in one of from, so of two racing callers at
// most one wins. The loser gets ErrConflict, or ErrNotFound if the order
// is gone.
func (r *repository) Transition(
	ctx context.Context,
	id string,
	from []Status,
	to Status,
	fields Fields,
) (*Order, error) {
	if err := core.CheckID("order", id); err != nil {
		return nil, err
	}

	if len(from) == 0 {
		return nil, fmt.Errorf("transition order: no source status: %w", core.ErrInvalidInput)
	}

	query, args, err := sqlx.In(`
		UPDATE orders o
		SET status = ?,
		    payment_ref = COALESCE(?, o.payment_ref),
		    admin_note = COALESCE(?, o.admin_note),
		    server_id = COALESCE(?, o.server_id),
		    invoice_id = COALESCE(?, o.invoice_id),
		    updated_at = NOW()
		WHERE o.id = ? AND o.status IN (?)
		RETURNING `+orderColumns,
		to, fields.PaymentRef, fields.AdminNote, fields.ServerID,
		fields.InvoiceID, id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("transition order: build query: %w", err)
	}

	var o Order
	err = r.db.GetContext(ctx, &o, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("transition order: %w", getErr)
		}
		return nil, fmt.Errorf(
			"order is %s, cannot move to %s: %w",
			current.Status, to, core.ErrConflict,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}

	return &o, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if err := core.CheckID("order", id); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete order: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*) AS total_orders,
		       COUNT(*) FILTER (WHERE status = 'AWAITING_VERIFICATION') AS pending_orders,
		       COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_orders,
		       COALESCE(SUM(amount_minor) FILTER (WHERE status = 'COMPLETED'), 0) AS revenue_minor
		FROM orders`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	return &s, nil
}
