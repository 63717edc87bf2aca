package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena/internal/config"
	"arena/internal/db"
	"arena/internal/entryflow"
	"arena/internal/handlers"
	"arena/internal/logging"
	"arena/internal/metrics"
	"arena/internal/notify"
	"arena/internal/scanner"
	"arena/internal/services"
	"arena/internal/store"
	"arena/internal/websocket"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New("arena-api", cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	accounts := store.NewAccountStore(database)
	sessions := store.NewSessionStore(database)
	matches := store.NewMatchStore(database)
	entries := store.NewEntryStore(database)
	purchases := store.NewPurchaseStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database, cfg.DBLockTimeout)
	hub := websocket.NewHub(logger)
	collectors := metrics.New(prometheus.DefaultRegisterer)

	admission := services.NewAdmissionService(txRunner, database, accounts, sessions, matches, entries, hub, collectors, logger,
		services.AdmissionConfig{RequireFullFee: cfg.EntryRequireFullFee})
	catalog := services.NewCatalogService(txRunner, matches, entries, purchases, audit, cfg.Location(), time.Now, logger)
	accountService := services.NewAccountService(txRunner, accounts, sessions, admin, entries, purchases, audit, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := notify.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build notification publisher", zap.String("sink", cfg.NotifySink), zap.Error(err))
	}
	defer publisher.Close()

	var sched gocron.Scheduler
	if cfg.ScannerEnabled {
		sched, err = scanner.New(matches, publisher, collectors, cfg.Location(), logger).Start(ctx)
		if err != nil {
			logger.Fatal("failed to start match scanner", zap.Error(err))
		}
	}

	metricsServer := metrics.StartServer(cfg.MetricsPort, prometheus.DefaultGatherer, database.PingContext, logger)

	handler := handlers.New(cfg, handlers.Deps{
		TxRunner:  txRunner,
		Accounts:  accountService,
		Admission: admission,
		Catalog:   catalog,
		Admin:     admin,
		Audit:     audit,
		Lookup:    accounts,
		Flows:     entryflow.NewRegistry(admission),
		Hub:       hub,
		Logger:    logger,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("arena API listening", zap.String("addr", server.Addr), zap.String("timezone", cfg.Location().String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			logger.Warn("scanner shutdown", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", zap.Error(err))
	}
}
