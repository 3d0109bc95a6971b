package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricedesk/pricedesk/internal/app"
	"github.com/pricedesk/pricedesk/internal/audit"
	"github.com/pricedesk/pricedesk/internal/catalog"
	"github.com/pricedesk/pricedesk/internal/identity"
	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/platform/cache"
	"github.com/pricedesk/pricedesk/internal/platform/db"
	"github.com/pricedesk/pricedesk/internal/promotion"
	"github.com/pricedesk/pricedesk/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	sessionManager := shared.NewSessionManager(redisClient, "pricedesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	identityRepo := identity.NewRepository(pool)
	grantStore := permission.NewStore(pool)
	auditRepo := audit.NewRepository(pool)
	promotionRepo := promotion.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)

	auditService := audit.NewService(auditRepo)
	engine := permission.NewEngine(identityRepo, grantStore, logger)
	permissionMw := permission.Middleware{Engine: engine, Logger: logger}

	identityService := identity.NewService(identityRepo)
	bootstrap := identity.NewBootstrap(identityRepo, grantStore, auditService, logger)
	permissionService := permission.NewService(engine, grantStore, identityRepo, auditService, logger)
	promotionService := promotion.NewService(promotionRepo, engine, auditService, logger)
	reverter := audit.NewReverter(auditRepo, auditService, catalogRepo, grantStore, identityRepo, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		IdentityHandler:   identity.NewHandler(logger, identityService, bootstrap, sessionManager),
		PermissionHandler: permission.NewHandler(logger, permissionService, permissionMw),
		PromotionHandler:  promotion.NewHandler(logger, promotionService, permissionMw),
		AuditHandler:      audit.NewHandler(logger, auditService, reverter, permissionMw),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
