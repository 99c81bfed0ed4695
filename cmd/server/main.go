package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/repository/mongodb"
	"github.com/mamadbah2/kitchenledger/internal/repository/postgres"
	"github.com/mamadbah2/kitchenledger/internal/repository/sheets"
	"github.com/mamadbah2/kitchenledger/internal/scheduler"
	"github.com/mamadbah2/kitchenledger/internal/server/handlers"
	"github.com/mamadbah2/kitchenledger/internal/server/router"
	commandsvc "github.com/mamadbah2/kitchenledger/internal/service/commands"
	"github.com/mamadbah2/kitchenledger/internal/service/export"
	whatsappsvc "github.com/mamadbah2/kitchenledger/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/kitchenledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/kitchenledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	pool, err := postgres.Connect(startupCtx, cfg.Postgres, logger.Named(baseLogger, "repo.postgres"))
	if err != nil {
		baseLogger.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()
	store := postgres.NewStore(pool, logger.Named(baseLogger, "repo.postgres"))

	mongoRepo, err := mongodb.NewMongoDBRepository(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var publisher scheduler.WeekPublisher
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		publisher = export.NewSheetPublisher(sheetsRepo, logger.Named(baseLogger, "svc.export"))
	} else {
		baseLogger.Warn("google sheets credentials missing, weekly sheet export disabled")
	}

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
	} else {
		baseLogger.Warn("whatsapp credentials missing, alerts will only be logged")
	}
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, logger.Named(baseLogger, "svc.whatsapp"))

	ledger := commandsvc.NewService(store, cfg.Engine, logger.Named(baseLogger, "svc.commands"))

	engine := router.New(router.Handlers{
		Catalog:  handlers.NewCatalogHandler(ledger, logger.Named(baseLogger, "handlers.catalog")),
		Expenses: handlers.NewExpenseHandler(ledger, logger.Named(baseLogger, "handlers.expenses")),
		Reports:  handlers.NewReportHandler(ledger, mongoRepo, logger.Named(baseLogger, "handlers.reports")),
		Payables: handlers.NewPayablesHandler(ledger, logger.Named(baseLogger, "handlers.payables")),
		Messages: handlers.NewMessageHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp")),
	}, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, ledger, mongoRepo, publisher, messagingSvc, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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
