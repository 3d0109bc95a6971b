package permission

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pricedesk/pricedesk/internal/platform/httpx"
)

// Handler wires HTTP endpoints for grant and override administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers permission routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireUser())
		r.Get("/grants", h.handleListGrants)
		r.Put("/grants", h.handleSetGrant)
		r.Put("/overrides", h.handleSetOverride)
	})
}

type grantResponse struct {
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Allowed   bool      `json:"allowed"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	actorID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	grants, err := h.service.Grants(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{Role: g.Role, Action: g.Action, Allowed: g.Allowed, UpdatedAt: g.UpdatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type setGrantInput struct {
	Role    string `json:"role" validate:"required,oneof=admin user"`
	Action  string `json:"action" validate:"required"`
	Allowed bool   `json:"allowed"`
}

func (h *Handler) handleSetGrant(w http.ResponseWriter, r *http.Request) {
	actorID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var input setGrantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.SetGrant(r.Context(), actorID, input.Role, input.Action, input.Allowed); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setOverrideInput struct {
	IdentityID int64  `json:"identity_id" validate:"required"`
	Action     string `json:"action" validate:"required"`
	Allowed    bool   `json:"allowed"`
}

func (h *Handler) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	actorID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var input setOverrideInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.SetOverride(r.Context(), actorID, input.IdentityID, input.Action, input.Allowed); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
