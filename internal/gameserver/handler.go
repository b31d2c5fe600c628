// AngelaMos | 2026
// handler.go

package gameserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/middleware"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/servers", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{serverID}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.repo.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToServerResponseList(servers))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if err := middleware.Authorize(r.Context(), s.UserID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToServerResponse(s))
}
