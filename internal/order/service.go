// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/middleware"
	"github.com/lumennodes/portal/internal/notify"
	"github.com/lumennodes/portal/internal/payment"
)

type PlanResolver interface {
	Resolve(ctx context.Context, in catalog.ResolveInput) (*catalog.Product, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type Notifier interface {
	OrderPlaced(evt notify.OrderPlaced)
}

type IntentGenerator interface {
	Generate(orderID string, amountMinor int64, payeeName string) (*payment.Intent, error)
}

type Service struct {
	repo     Repository
	plans    PlanResolver
	servers  gameserver.Repository
	invoices invoice.Repository
	intents  IntentGenerator
	notifier Notifier
	logger   *slog.Logger
}

type ServiceConfig struct {
	Orders   Repository
	Plans    PlanResolver
	Servers  gameserver.Repository
	Invoices invoice.Repository
	Intents  IntentGenerator
	Notifier Notifier
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:     cfg.Orders,
		plans:    cfg.Plans,
		servers:  cfg.Servers,
		invoices: cfg.Invoices,
		intents:  cfg.Intents,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Detail is an order with everything it links to.
type Detail struct {
	Order   *Order
	Product *catalog.Product
	Server  *gameserver.Server
	Invoice *invoice.Invoice
}

// Create records a PENDING_PAYMENT order at the resolved plan price. The
// staff notification is queued only once the row exists and its outcome
// never reaches the caller.
func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateOrderRequest,
) (*Order, error) {
	ctx, span := core.StartSpan(ctx, "order.create",
		core.AttrUserID.String(userID),
	)
	defer span.End()

	product, err := s.plans.Resolve(ctx, catalog.ResolveInput{
		ProductID:   req.ProductID,
		Slug:        req.PlanSlug,
		Name:        req.PlanName,
		AmountMinor: req.AmountMinor,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	span.SetAttributes(core.AttrPlanID.String(product.ID))

	o := &Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProductID:   product.ID,
		AmountMinor: product.PriceMinor,
		Status:      StatusPendingPayment,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "order created",
		"order_id", o.ID,
		"user_id", userID,
		"product", product.Slug,
		"amount_minor", o.AmountMinor,
	)

	s.notifyPlaced(ctx, o, product)

	return o, nil
}

func (s *Service) notifyPlaced(ctx context.Context, o *Order, p *catalog.Product) {
	if s.notifier == nil {
		return
	}

	evt := notify.OrderPlaced{
		OrderID:       o.ID,
		CustomerEmail: middleware.GetUserEmail(ctx),
		PlanName:      p.Name,
		AmountMinor:   o.AmountMinor,
		RAM:           p.RAM,
		CPU:           p.CPU,
		Disk:          p.Disk,
	}

	if view, err := s.repo.GetView(ctx, o.ID); err == nil {
		evt.CustomerEmail = view.UserEmail
		evt.CustomerName = view.UserName
	} else {
		s.logger.WarnContext(ctx, "order notification without customer details",
			"order_id", o.ID,
			"error", err,
		)
	}

	s.notifier.OrderPlaced(evt)
}

// SubmitPayment records the caller's payment reference and queues the order
// for review. Only legal from PENDING_PAYMENT.
func (s *Service) SubmitPayment(
	ctx context.Context,
	id string,
	req SubmitPaymentRequest,
) (*Order, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}

	ref := req.PaymentRef
	o, err := s.repo.Transition(ctx, id,
		[]Status{StatusPendingPayment},
		StatusAwaitingVerification,
		Fields{PaymentRef: &ref},
	)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment submitted", "order_id", id)
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}

	o, err := s.repo.Transition(ctx, id, SourcesOf(StatusCancelled), StatusCancelled, Fields{})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order cancelled", "order_id", id)
	return o, nil
}

// Deny is a purely local transition. An order held in PROVISIONING by a
// running approval cannot be denied.
func (s *Service) Deny(ctx context.Context, id, note string) (*Order, error) {
	fields := Fields{}
	if note != "" {
		fields.AdminNote = &note
	}

	o, err := s.repo.Transition(ctx, id, SourcesOf(StatusDenied), StatusDenied, fields)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order denied",
		"order_id", id,
		"actor_id", middleware.GetUserID(ctx),
	)
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "order deleted",
		"order_id", id,
		"actor_id", middleware.GetUserID(ctx),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.owned(ctx, id)
}

func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	o, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Order: o}

	if d.Product, err = s.plans.Get(ctx, o.ProductID); err != nil {
		return nil, err
	}

	if o.ServerID != nil {
		if d.Server, err = s.servers.GetByID(ctx, *o.ServerID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
	}

	if o.InvoiceID != nil {
		if d.Invoice, err = s.invoices.GetByID(ctx, *o.InvoiceID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
	}

	return d, nil
}

// PaymentIntent rebuilds the UPI intent for an order still awaiting
// payment or review.
func (s *Service) PaymentIntent(ctx context.Context, id string) (*payment.Intent, error) {
	o, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status != StatusPendingPayment && o.Status != StatusAwaitingVerification {
		return nil, fmt.Errorf("order is %s: %w", o.Status, core.ErrConflict)
	}

	return s.intents.Generate(o.ID, o.AmountMinor, "")
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]View, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]View, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

func (s *Service) GetView(ctx context.Context, id string) (*View, error) {
	return s.repo.GetView(ctx, id)
}

func (s *Service) owned(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := middleware.Authorize(ctx, o.UserID); err != nil {
		return nil, err
	}

	return o, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}
