// AngelaMos | 2026
// service.go

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/order"
	"github.com/lumennodes/portal/internal/panel"
	"github.com/lumennodes/portal/internal/user"
)

type PanelAPI interface {
	FindUserByEmail(ctx context.Context, email string) (*panel.User, error)
	CreateUser(ctx context.Context, email, name string) (*panel.User, error)
	CreateServer(ctx context.Context, p panel.CreateServerParams) (*panel.Server, error)
	SuspendServer(ctx context.Context, id int64) error
	UnsuspendServer(ctx context.Context, id int64) error
	DeleteServer(ctx context.Context, id int64) error
}

type Accounts interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	LinkPanelAccount(ctx context.Context, userID string, panelID int64) (int64, error)
}

type Products interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type Service struct {
	store    Store
	panel    PanelAPI
	accounts Accounts
	products Products
	defaults config.PanelConfig
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceConfig struct {
	Store    Store
	Panel    PanelAPI
	Accounts Accounts
	Products Products
	Defaults config.PanelConfig
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:    cfg.Store,
		panel:    cfg.Panel,
		accounts: cfg.Accounts,
		products: cfg.Products,
		defaults: cfg.Defaults,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Result is the outcome of an approval. Degraded means the panel server
// could not be created and the local server record awaits a retry.
type Result struct {
	Order    *order.Order
	Server   *gameserver.Server
	Invoice  *invoice.Invoice
	Degraded bool
}

// Approve turns an AWAITING_VERIFICATION order into a COMPLETED one with a
// server and an invoice. The order is claimed first, so concurrent calls
// for the same order yield one approval and Conflict for the rest.
//
// Panel user resolution failing releases the claim and returns
// core.ErrUpstream; the order can be approved again later. Server creation
// failing only degrades the result.
func (s *Service) Approve(ctx context.Context, orderID, note string) (*Result, error) {
	// Once claimed the sequence runs to the end even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	ctx, span := core.StartSpan(ctx, "provision.approve",
		core.AttrOrderID.String(orderID),
	)
	defer span.End()

	o, err := s.store.Claim(ctx, orderID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	owner, product, err := s.loadOrderContext(ctx, o)
	if err != nil {
		s.release(ctx, o.ID)
		core.SetSpanError(ctx, err)
		return nil, err
	}
	span.SetAttributes(
		core.AttrUserID.String(owner.ID),
		core.AttrPlanID.String(product.ID),
	)

	panelUserID, err := s.resolvePanelUser(ctx, owner)
	if err != nil {
		s.release(ctx, o.ID)
		core.SetSpanError(ctx, err)
		s.logger.ErrorContext(ctx, "approval aborted: panel user unresolved",
			"order_id", o.ID,
			"user_id", owner.ID,
			"error", err,
		)
		return nil, fmt.Errorf("resolve panel user: %w", err)
	}

	remote := s.createRemoteServer(ctx, o, owner, product, panelUserID)

	now := s.now().UTC()
	srv := newServerRecord(o, product, remote)
	inv := &invoice.Invoice{
		ID:          uuid.New().String(),
		OrderID:     o.ID,
		UserID:      o.UserID,
		AmountMinor: o.AmountMinor,
		Status:      invoice.StatusPaid,
		DueAt:       now,
		PaidAt:      &now,
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	completed, err := s.store.Complete(ctx, Completion{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		Server:    srv,
		Invoice:   inv,
		Note:      notePtr,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		s.release(ctx, o.ID)
		if remote != nil {
			s.discardRemote(ctx, remote.ID)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "order approved",
		"order_id", o.ID,
		"server_id", srv.ID,
		"invoice_id", inv.ID,
		"degraded", remote == nil,
	)

	return &Result{
		Order:    completed,
		Server:   srv,
		Invoice:  inv,
		Degraded: remote == nil,
	}, nil
}

func (s *Service) loadOrderContext(
	ctx context.Context,
	o *order.Order,
) (*user.User, *catalog.Product, error) {
	owner, err := s.accounts.GetUser(ctx, o.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load order owner: %w", err)
	}

	product, err := s.products.Get(ctx, o.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("load order product: %w", err)
	}
	if !product.InStock() {
		return nil, nil, fmt.Errorf("plan %s is sold out: %w", product.Slug, core.ErrConflict)
	}

	return owner, product, nil
}

// resolvePanelUser returns the owner's panel account id, adopting an
// existing account with the same email before creating one. The id is
// stored on the user so later approvals make no panel user calls.
func (s *Service) resolvePanelUser(ctx context.Context, u *user.User) (int64, error) {
	if u.PanelUserID != nil {
		return *u.PanelUserID, nil
	}

	ctx, span := core.StartSpan(ctx, "provision.resolve_panel_user")
	defer span.End()

	found, err := s.panel.FindUserByEmail(ctx, u.Email)
	if err != nil {
		s.logger.WarnContext(ctx, "panel user lookup failed, creating instead",
			"user_id", u.ID,
			"error", err,
		)
		found = nil
	}

	var panelID int64
	if found != nil {
		panelID = found.ID
	} else {
		created, err := s.panel.CreateUser(ctx, u.Email, u.Name)
		if err != nil {
			core.SetSpanError(ctx, err)
			return 0, err
		}
		panelID = created.ID
	}

	linked, err := s.accounts.LinkPanelAccount(ctx, u.ID, panelID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return 0, fmt.Errorf("persist panel user id: %w", err)
	}

	return linked, nil
}

func (s *Service) createRemoteServer(
	ctx context.Context,
	o *order.Order,
	owner *user.User,
	product *catalog.Product,
	panelUserID int64,
) *panel.Server {
	name := fmt.Sprintf("%s - %s", product.Name, owner.Email)
	params := ServerParams(product, s.defaults, name, panelUserID)

	remote, err := s.panel.CreateServer(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "panel server creation failed, completing degraded",
			"order_id", o.ID,
			"panel_user_id", panelUserID,
			"error", err,
		)
		return nil
	}

	return remote
}

func newServerRecord(
	o *order.Order,
	product *catalog.Product,
	remote *panel.Server,
) *gameserver.Server {
	orderID := o.ID
	srv := &gameserver.Server{
		ID:      uuid.New().String(),
		OrderID: &orderID,
		UserID:  o.UserID,
		Name:    product.Name,
		Status:  gameserver.StatusProvisioning,
	}

	if remote != nil {
		applyRemote(srv, remote)
		srv.Status = gameserver.StatusOnline
	}

	return srv
}

func applyRemote(srv *gameserver.Server, remote *panel.Server) {
	panelID := remote.ID
	srv.PanelID = &panelID
	if remote.Identifier != "" {
		identifier := remote.Identifier
		srv.Identifier = &identifier
	}
	if remote.IP != "" {
		ip := remote.IP
		srv.IP = &ip
	}
	if remote.Port != 0 {
		port := remote.Port
		srv.Port = &port
	}
}

func (s *Service) release(ctx context.Context, orderID string) {
	if err := s.store.Release(ctx, orderID); err != nil {
		s.logger.ErrorContext(ctx, "failed to release order claim",
			"order_id", orderID,
			"error", err,
		)
	}
}

func (s *Service) discardRemote(ctx context.Context, panelServerID int64) {
	if err := s.panel.DeleteServer(ctx, panelServerID); err != nil {
		s.logger.ErrorContext(ctx, "orphaned panel server needs manual removal",
			"panel_server_id", panelServerID,
			"error", err,
		)
	}
}

// RetryServer re-attempts panel creation for a degraded server. The server
// is claimed by moving it to INSTALLING so two retries cannot both run.
func (s *Service) RetryServer(ctx context.Context, serverID string) (*gameserver.Server, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := core.StartSpan(ctx, "provision.retry_server",
		core.AttrServerID.String(serverID),
	)
	defer span.End()

	servers := s.store.Servers()

	srv, err := servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if !srv.IsDegraded() || srv.OrderID == nil {
		return nil, fmt.Errorf("server %s is %s: %w", srv.ID, srv.Status, core.ErrConflict)
	}

	if _, err := servers.Transition(ctx, srv.ID,
		gameserver.StatusProvisioning, gameserver.StatusInstalling); err != nil {
		return nil, err
	}

	remote, err := s.retryRemote(ctx, srv)
	if err != nil {
		core.SetSpanError(ctx, err)
		if _, rbErr := servers.Transition(ctx, srv.ID,
			gameserver.StatusInstalling, gameserver.StatusProvisioning); rbErr != nil {
			s.logger.ErrorContext(ctx, "failed to release server claim",
				"server_id", srv.ID,
				"error", rbErr,
			)
		}
		return nil, err
	}

	updated, err := servers.Attach(ctx, srv.ID, gameserver.StatusInstalling, gameserver.Allocation{
		PanelID:    remote.ID,
		Identifier: remote.Identifier,
		IP:         remote.IP,
		Port:       remote.Port,
	}, gameserver.StatusOnline)
	if err != nil {
		s.discardRemote(ctx, remote.ID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "degraded server provisioned",
		"server_id", srv.ID,
		"panel_server_id", remote.ID,
	)
	return updated, nil
}

func (s *Service) retryRemote(ctx context.Context, srv *gameserver.Server) (*panel.Server, error) {
	o, err := s.store.Order(ctx, *srv.OrderID)
	if err != nil {
		return nil, err
	}

	owner, product, err := s.loadOrderContext(ctx, o)
	if err != nil {
		return nil, err
	}

	panelUserID, err := s.resolvePanelUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("resolve panel user: %w", err)
	}

	name := fmt.Sprintf("%s - %s", product.Name, owner.Email)
	remote, err := s.panel.CreateServer(ctx, ServerParams(product, s.defaults, name, panelUserID))
	if err != nil {
		return nil, fmt.Errorf("create panel server: %w", err)
	}
	return remote, nil
}

func (s *Service) Suspend(ctx context.Context, serverID string) (*gameserver.Server, error) {
	return s.setSuspended(ctx, serverID, true)
}

func (s *Service) Unsuspend(ctx context.Context, serverID string) (*gameserver.Server, error) {
	return s.setSuspended(ctx, serverID, false)
}

func (s *Service) setSuspended(
	ctx context.Context,
	serverID string,
	suspend bool,
) (*gameserver.Server, error) {
	servers := s.store.Servers()

	srv, err := servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if srv.PanelID == nil {
		return nil, fmt.Errorf("server %s has no panel server: %w", srv.ID, core.ErrConflict)
	}

	from, to := gameserver.StatusOnline, gameserver.StatusSuspended
	call := s.panel.SuspendServer
	if !suspend {
		from, to = gameserver.StatusSuspended, gameserver.StatusOnline
		call = s.panel.UnsuspendServer
	}

	if srv.Status != from {
		return nil, fmt.Errorf("server %s is %s: %w", srv.ID, srv.Status, core.ErrConflict)
	}

	if err := call(ctx, *srv.PanelID); err != nil {
		return nil, err
	}

	updated, err := servers.Transition(ctx, srv.ID, from, to)
	if errors.Is(err, core.ErrConflict) {
		s.logger.WarnContext(ctx, "server status changed during panel call",
			"server_id", srv.ID,
			"want", to,
		)
	}
	return updated, err
}
