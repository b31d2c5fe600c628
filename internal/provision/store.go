// AngelaMos | 2026
// store.go

package provision

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/order"
)

// Completion is everything written when an approval finishes.
type Completion struct {
	OrderID   string
	ProductID string
	Server    *gameserver.Server
	Invoice   *invoice.Invoice
	Note      *string
}

type Store interface {
	Claim(ctx context.Context, orderID string) (*order.Order, error)
	Release(ctx context.Context, orderID string) error
	Complete(ctx context.Context, c Completion) (*order.Order, error)
	Order(ctx context.Context, orderID string) (*order.Order, error)
	Servers() gameserver.Repository
}

type sqlStore struct {
	db      *sqlx.DB
	orders  order.Repository
	servers gameserver.Repository
}

func NewStore(db *sqlx.DB) Store {
	return &sqlStore{
		db:      db,
		orders:  order.NewRepository(db),
		servers: gameserver.NewRepository(db),
	}
}

// Claim marks the order PROVISIONING. Only one caller can hold the claim.
func (s *sqlStore) Claim(ctx context.Context, orderID string) (*order.Order, error) {
	return s.orders.Transition(ctx, orderID,
		[]order.Status{order.StatusAwaitingVerification},
		order.StatusProvisioning,
		order.Fields{},
	)
}

func (s *sqlStore) Release(ctx context.Context, orderID string) error {
	_, err := s.orders.Transition(ctx, orderID,
		[]order.Status{order.StatusProvisioning},
		order.StatusAwaitingVerification,
		order.Fields{},
	)
	return err
}

// Complete takes a unit of plan stock, inserts the server and invoice and
// moves the order to COMPLETED in one transaction.
func (s *sqlStore) Complete(ctx context.Context, c Completion) (*order.Order, error) {
	var completed *order.Order

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := catalog.NewRepository(tx).TakeStock(ctx, c.ProductID); err != nil {
			return err
		}

		if err := gameserver.NewRepository(tx).Create(ctx, c.Server); err != nil {
			return err
		}

		if err := invoice.NewRepository(tx).Create(ctx, c.Invoice); err != nil {
			return err
		}

		o, err := order.NewRepository(tx).Transition(ctx, c.OrderID,
			[]order.Status{order.StatusProvisioning},
			order.StatusCompleted,
			order.Fields{
				AdminNote: c.Note,
				ServerID:  &c.Server.ID,
				InvoiceID: &c.Invoice.ID,
			},
		)
		if err != nil {
			return err
		}

		completed = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete order %s: %w", c.OrderID, err)
	}

	return completed, nil
}

func (s *sqlStore) Order(ctx context.Context, orderID string) (*order.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

func (s *sqlStore) Servers() gameserver.Repository {
	return s.servers
}
