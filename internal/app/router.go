package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pricedesk/pricedesk/internal/audit"
	"github.com/pricedesk/pricedesk/internal/identity"
	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/promotion"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	IdentityHandler   *identity.Handler
	PermissionHandler *permission.Handler
	PromotionHandler  *promotion.Handler
	AuditHandler      *audit.Handler
}

// NewRouter assembles the HTTP router with the shared middleware chain.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/auth", params.IdentityHandler.MountRoutes)
	r.Route("/permissions", params.PermissionHandler.MountRoutes)
	r.Route("/promotions", params.PromotionHandler.MountRoutes)
	r.Route("/audit", params.AuditHandler.MountRoutes)

	return r
}
