package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/app"
	"github.com/nicefood/prodtrack/internal/config"
	"github.com/nicefood/prodtrack/internal/scheduler"
	"github.com/nicefood/prodtrack/internal/server/handlers"
	"github.com/nicefood/prodtrack/internal/server/router"
	"github.com/nicefood/prodtrack/internal/storage"
	whatsappclient "github.com/nicefood/prodtrack/pkg/clients/whatsapp"
	"github.com/nicefood/prodtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	a, err := app.New(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init application", zap.Error(err))
	}
	defer a.Close()

	// Optional integrations stay nil interfaces when not configured.
	var archive storage.Archive
	if cfg.Storage.Enabled() {
		minioArchive, err := storage.NewMinioArchive(context.Background(), cfg.Storage, baseLogger.Named("storage"))
		if err != nil {
			baseLogger.Fatal("failed to init report archive", zap.Error(err))
		}
		archive = minioArchive
	} else {
		baseLogger.Warn("minio endpoint missing, report archiving disabled")
	}

	var messenger whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		messenger = whatsappclient.NewClient(cfg.WhatsApp, baseLogger.Named("clients.whatsapp"))
		baseLogger.Info("whatsapp report delivery enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, report delivery disabled")
	}

	engine := router.New(router.Handlers{
		Session:   handlers.NewSessionHandler(a.Auth, a.Users, baseLogger.Named("handlers.session")),
		Directory: handlers.NewDirectoryHandler(a.Sections, a.Users, baseLogger.Named("handlers.directory")),
		Ledger:    handlers.NewLedgerHandler(a.Ledger, baseLogger.Named("handlers.ledger")),
		Period:    handlers.NewPeriodHandler(a.Periods, a.Sections, baseLogger.Named("handlers.period")),
		Recipe:    handlers.NewRecipeHandler(a.Importer, baseLogger.Named("handlers.recipe")),
		Report:    handlers.NewReportHandler(a.Consumption, a.Ledger, a.Reporting, baseLogger.Named("handlers.report")),
	}, a.Auth, cfg.Server.AllowedOrigins, baseLogger.Named("router"))

	// Initialize Scheduler
	if archive != nil || messenger != nil {
		location, err := time.LoadLocation(cfg.Reporting.Timezone)
		if err != nil {
			baseLogger.Fatal("invalid timezone", zap.Error(err))
		}
		sched := scheduler.NewScheduler(scheduler.Options{
			Schedule:  cfg.Reporting.CronSchedule,
			Location:  location,
			Recipient: cfg.WhatsApp.ReportRecipient,
		}, a.Sections, a.Consumption, a.Reporting, archive, messenger, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
