package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/flaketech/quotebuilder/internal/app"
	"github.com/flaketech/quotebuilder/internal/auth"
	"github.com/flaketech/quotebuilder/internal/catalog"
	"github.com/flaketech/quotebuilder/internal/history"
	"github.com/flaketech/quotebuilder/internal/observability"
	"github.com/flaketech/quotebuilder/internal/platform/cache"
	"github.com/flaketech/quotebuilder/internal/platform/db"
	"github.com/flaketech/quotebuilder/internal/quotation"
	"github.com/flaketech/quotebuilder/internal/render"
	"github.com/flaketech/quotebuilder/internal/shared"
	"github.com/flaketech/quotebuilder/jobs"
)

// crmQueue adapts the jobs client to the quotation handler.
type crmQueue struct {
	client *jobs.Client
}

func (q crmQueue) EnqueueCRMExport(ctx context.Context, snap quotation.Snapshot, userEmail string) error {
	return q.client.EnqueueCRMExport(ctx, jobs.CRMExportPayload{Snapshot: snap, UserEmail: userEmail})
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "quotebuilder_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewPGRepository(pool)
	authService := auth.NewService(logger, authRepo, jobClient)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	catalogRepo := catalog.NewSheetRepository(cfg.CatalogPath)
	catalogService := catalog.NewService(logger, catalogRepo, redisClient, cfg.CatalogCacheTTL)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	renderer := render.NewRenderer(logger, render.Assets{
		Header:  cfg.AssetHeaderPath,
		Footer:  cfg.AssetFooterPath,
		Cover:   cfg.AssetCoverPath,
		Closure: cfg.AssetClosurePath,
	}, cfg.ImageTimeout)

	quotationStore := quotation.NewStore(redisClient, cfg.SessionTTL)
	quotationService := quotation.NewService(logger, quotationStore, catalogService)

	historyRepo := history.NewSheetRepository(cfg.HistoryPath)
	historyService := history.NewService(logger, historyRepo)
	historyHandler := history.NewHandler(logger, historyService, renderer, quotationService)

	var crmEnqueuer quotation.CRMEnqueuer
	if cfg.CRMEnabled() {
		crmEnqueuer = crmQueue{client: jobClient}
	} else {
		logger.Info("crm export disabled, no CRM_BASE_URL configured")
	}

	quotationHandler := quotation.NewHandler(quotation.HandlerConfig{
		Logger:        logger,
		Service:       quotationService,
		Renderer:      renderer,
		History:       historyService,
		CRM:           crmEnqueuer,
		Authenticator: authService,
		Observer:      metrics,
		Filename:      render.FileName,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		QuotationHandler: quotationHandler,
		HistoryHandler:   historyHandler,
		Metrics:          metrics,
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
