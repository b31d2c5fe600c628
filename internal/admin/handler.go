// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/notify"
	"github.com/lumennodes/portal/internal/order"
	"github.com/lumennodes/portal/internal/provision"
)

const recentOrderCount = 10

type OrderService interface {
	List(ctx context.Context, params order.ListParams) ([]order.View, int, error)
	Stats(ctx context.Context) (*order.Stats, error)
	Deny(ctx context.Context, id, note string) (*order.Order, error)
	Delete(ctx context.Context, id string) error
}

type Provisioner interface {
	Approve(ctx context.Context, orderID, note string) (*provision.Result, error)
	RetryServer(ctx context.Context, serverID string) (*gameserver.Server, error)
	Suspend(ctx context.Context, serverID string) (*gameserver.Server, error)
	Unsuspend(ctx context.Context, serverID string) (*gameserver.Server, error)
}

type Handler struct {
	orders       OrderService
	provisioner  Provisioner
	countUsers   func(ctx context.Context) (int, error)
	serverCounts func(ctx context.Context) (map[gameserver.Status]int, error)
	dbStats      func() sql.DBStats
	redisStats   func() *redis.PoolStats
	redisPing    func(ctx context.Context) error
	dbPing       func(ctx context.Context) error
	panelPing    func(ctx context.Context) error
	notifyStats  func() notify.Stats
	validator    *validator.Validate
}

type HandlerConfig struct {
	Orders       OrderService
	Provisioner  Provisioner
	CountUsers   func(ctx context.Context) (int, error)
	ServerCounts func(ctx context.Context) (map[gameserver.Status]int, error)
	DBStats      func() sql.DBStats
	RedisStats   func() *redis.PoolStats
	RedisPing    func(ctx context.Context) error
	DBPing       func(ctx context.Context) error
	PanelPing    func(ctx context.Context) error
	NotifyStats  func() notify.Stats
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		orders:       cfg.Orders,
		provisioner:  cfg.Provisioner,
		countUsers:   cfg.CountUsers,
		serverCounts: cfg.ServerCounts,
		dbStats:      cfg.DBStats,
		redisStats:   cfg.RedisStats,
		redisPing:    cfg.RedisPing,
		dbPing:       cfg.DBPing,
		panelPing:    cfg.PanelPing,
		notifyStats:  cfg.NotifyStats,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetDashboard)
		r.Get("/stats/system", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		r.Get("/orders", h.ListOrders)
		r.Patch("/orders", h.ReviewOrder)
		r.Delete("/orders/{orderID}", h.DeleteOrder)

		r.Post("/servers/{serverID}/retry", h.RetryServer)
		r.Post("/servers/{serverID}/suspend", h.SuspendServer)
		r.Post("/servers/{serverID}/unsuspend", h.UnsuspendServer)
	})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.countUsers(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	servers, err := h.serverCounts(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	recent, _, err := h.orders.List(ctx, order.ListParams{Page: 1, PageSize: recentOrderCount})
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	totalServers := 0
	for _, n := range servers {
		totalServers += n
	}

	core.OK(w, DashboardResponse{
		TotalUsers:      totalUsers,
		TotalOrders:     stats.TotalOrders,
		PendingOrders:   stats.PendingOrders,
		CompletedOrders: stats.CompletedOrders,
		RevenueMinor:    stats.RevenueMinor,
		Revenue:         order.FormatAmount(stats.RevenueMinor),
		TotalServers:    totalServers,
		DegradedServers: servers[gameserver.StatusProvisioning],
		RecentOrders:    order.ToReviewResponseList(recent),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := order.ParseListParams(r)

	views, total, err := h.orders.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, order.ToReviewResponseList(views), params.Page, params.PageSize, total)
}

// ReviewOrder approves or denies an order. Approval runs provisioning and
// reports degraded when the panel server could not be created.
func (h *Handler) ReviewOrder(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if req.Action == ActionDeny {
		o, err := h.orders.Deny(r.Context(), req.OrderID, req.AdminNote)
		if err != nil {
			core.JSONError(w, err)
			return
		}
		core.OK(w, ReviewResponse{Order: order.ToOrderResponse(o)})
		return
	}

	res, err := h.provisioner.Approve(r.Context(), req.OrderID, req.AdminNote)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	srv := gameserver.ToServerResponse(res.Server)
	inv := invoice.ToInvoiceResponse(res.Invoice)
	core.OK(w, ReviewResponse{
		Order:    order.ToOrderResponse(res.Order),
		Server:   &srv,
		Invoice:  &inv,
		Degraded: res.Degraded,
	})
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RetryServer(w http.ResponseWriter, r *http.Request) {
	h.serverAction(w, r, h.provisioner.RetryServer)
}

func (h *Handler) SuspendServer(w http.ResponseWriter, r *http.Request) {
	h.serverAction(w, r, h.provisioner.Suspend)
}

func (h *Handler) UnsuspendServer(w http.ResponseWriter, r *http.Request) {
	h.serverAction(w, r, h.provisioner.Unsuspend)
}

func (h *Handler) serverAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, serverID string) (*gameserver.Server, error),
) {
	srv, err := action(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, gameserver.ToServerResponse(srv))
}
