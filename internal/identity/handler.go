package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pricedesk/pricedesk/internal/platform/httpx"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// Handler wires HTTP endpoints for registration and session flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	bootstrap      *Bootstrap
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, bootstrap *Bootstrap, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		bootstrap:      bootstrap,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers identity routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type credentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type identityResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ident, err := h.service.Register(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Problem(w, http.StatusConflict, "Conflict", ErrEmailTaken.Error())
			return
		}
		h.logger.Error("register identity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, identityResponse{ID: ident.ID, Email: ident.Email})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ident, err := h.service.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	// First session establishment runs the bootstrap protocol; it is a
	// no-op for identities whose profile already exists.
	if err := h.bootstrap.FirstUser(r.Context(), ident.ID); err != nil {
		h.logger.Error("bootstrap first user", slog.Int64("identity_id", ident.ID), slog.Any("error", err))
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(ident.ID, 10))

	current, err := h.service.Get(r.Context(), ident.ID)
	if err != nil {
		current = ident
	}
	httpx.JSON(w, http.StatusOK, identityResponse{ID: current.ID, Email: current.Email, Role: current.Role})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
