// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lumennodes/portal/internal/core"
)

type IntentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	OrderID   string          `json:"order_id"   validate:"required,uuid"`
	PayeeName string          `json:"payee_name" validate:"omitempty,max=100"`
}

type Handler struct {
	generator *Generator
	validator *validator.Validate
}

func NewHandler(generator *Generator) *Handler {
	return &Handler{
		generator: generator,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payment", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/intent", h.CreateIntent)
	})
}

func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	minor, err := ToMinor(req.Amount)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	intent, err := h.generator.Generate(req.OrderID, minor, req.PayeeName)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, intent)
}
