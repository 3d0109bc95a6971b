package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the audit log screen's backend.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	reverter *Reverter
	mw       permission.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reverter *Reverter, mw permission.Middleware) *Handler {
	return &Handler{logger: logger, service: service, reverter: reverter, mw: mw}
}

// MountRoutes registers audit routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(permission.ActionManageUsers))
		r.Get("/", h.handleRecent)
		r.Post("/{entryID}/revert", h.handleRevert)
	})
}

type entryResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       ActionType `json:"action_type"`
	ActorID    int64      `json:"actor_id"`
	Payload    Payload    `json:"payload"`
	CreatedAt  time.Time  `json:"created_at"`
	Revertible bool       `json:"revertible"`
	Reverted   bool       `json:"reverted"`
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.service.Recent(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryResponse{
			ID:         entry.ID,
			Type:       entry.Type,
			ActorID:    entry.ActorID,
			Payload:    entry.Payload,
			CreatedAt:  entry.CreatedAt,
			Revertible: entry.Revertible,
			Reverted:   entry.Reverted,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	actorID, ok := permission.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}

	if err := h.reverter.Revert(r.Context(), entryID, actorID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
