package promotion

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the promotion workflow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        permission.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw permission.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers promotion routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireUser())
		r.Post("/", h.handleRequest)
		r.Get("/pending", h.handleListPending)
		r.Post("/{requestID}/resolve", h.handleResolve)
	})
}

type requestResponse struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID int64      `json:"requester_id"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *int64     `json:"resolved_by,omitempty"`
}

func toResponse(req Request) requestResponse {
	return requestResponse{
		ID:          req.ID,
		RequesterID: req.RequesterID,
		Status:      req.Status,
		RequestedAt: req.RequestedAt,
		ResolvedAt:  req.ResolvedAt,
		ResolvedBy:  req.ResolvedBy,
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := permission.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	req, err := h.service.Request(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*req))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	actorID, ok := permission.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	pending, err := h.service.ListPending(r.Context(), actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(pending))
	for _, req := range pending {
		out = append(out, toResponse(req))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type resolveInput struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := permission.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request id")
		return
	}

	var input resolveInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	resolved, err := h.service.Resolve(r.Context(), requestID, actorID, Decision(input.Decision))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*resolved))
}
