// AngelaMos | 2026
// handler.go

package order

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the customer order routes. orderWrites throttles
// placement and payment reference submission per account.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, orderWrites func(http.Handler) http.Handler,
) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.With(orderWrites).Post("/", h.Create)
		r.Get("/{orderID}", h.Get)
		r.With(orderWrites).Patch("/{orderID}", h.SubmitPayment)
		r.Post("/{orderID}/cancel", h.Cancel)
		r.Get("/{orderID}/payment", h.PaymentIntent)
	})
}

// RegisterStaffRoutes exposes the read-only review queue to STAFF and above.
func (h *Handler) RegisterStaffRoutes(
	r chi.Router,
	authenticator, staffOnly func(http.Handler) http.Handler,
) {
	r.Route("/staff/orders", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(staffOnly)

		r.Get("/", h.ReviewQueue)
		r.Get("/{orderID}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToReviewResponseList(views))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToOrderResponse(o))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Detail(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToDetailResponse(d))
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.SubmitPayment(r.Context(), chi.URLParam(r, "orderID"), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Cancel(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) PaymentIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := h.service.PaymentIntent(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, intent)
}

// ReviewQueue lists orders for review, newest first, optionally filtered
// by ?status=.
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	params := ParseListParams(r)

	views, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToReviewResponseList(views), params.Page, params.PageSize, total)
}

func ParseListParams(r *http.Request) ListParams {
	q := r.URL.Query()
	params := ListParams{
		Page:     atoiOr(q.Get("page"), 1),
		PageSize: atoiOr(q.Get("page_size"), 20),
		Status:   Status(q.Get("status")),
	}
	params.Normalize()
	return params
}

func atoiOr(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
