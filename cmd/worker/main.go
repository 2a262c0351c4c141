package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/flaketech/quotebuilder/internal/app"
	"github.com/flaketech/quotebuilder/internal/crm"
	jobmetrics "github.com/flaketech/quotebuilder/internal/jobs"
	"github.com/flaketech/quotebuilder/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	metrics := jobmetrics.NewMetrics(nil)

	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, "QuoteBuilder")

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskTypePasswordResetMail, Handler: jobs.NewPasswordResetMailHandler(logger, mailer, metrics)},
	}
	if cfg.CRMEnabled() {
		exporter := crm.NewExporter(logger, crm.NewClient(cfg.CRMBaseURL, cfg.CRMToken, cfg.CRMTimeout))
		handlers = append(handlers, jobs.TaskHandler{
			Type:    jobs.TaskTypeCRMExport,
			Handler: jobs.NewCRMExportHandler(logger, exporter, metrics),
		})
	} else {
		logger.Info("crm export disabled, no CRM_BASE_URL configured")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
