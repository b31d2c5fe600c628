// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumennodes/portal/internal/core"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{slug}", h.Get)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/products", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.Create)
		r.Patch("/{productID}/stock", h.SetStock)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	featured := r.URL.Query().Get("featured") == "true"

	products, err := h.service.List(r.Context(), featured)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProductResponseList(products))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToProductResponse(p))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToProductResponse(p))
}

func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.SetStock(r.Context(), chi.URLParam(r, "productID"), *req.Stock)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToProductResponse(p))
}
