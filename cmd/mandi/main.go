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
	"github.com/joho/godotenv"

	"github.com/mandi-erp/mandi-erp/internal/app"
	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/ledger"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/platform/cache"
	"github.com/mandi-erp/mandi-erp/internal/platform/db"
	"github.com/mandi-erp/mandi-erp/internal/reports"
	"github.com/mandi-erp/mandi-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// reports fall back to uncached reads when redis is absent
		logger.Warn("connect redis", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	masterdataService := masterdata.NewService(masterdata.NewRepository(dbpool))
	entriesService := entries.NewService(entries.NewRepository(dbpool), masterdataService)
	billingService := billing.NewService(billing.NewRepository(dbpool), masterdataService)
	cashflowService := cashflow.NewService(cashflow.NewRepository(dbpool), masterdataService, billingService, entriesService)

	ledgerService := ledger.NewService(logger, ledger.NewStore(dbpool))
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(logger, ledger.NewStore(dbpool), reportCache)

	// every mutation triggers a full recompute, then drops memoised reports
	reconciler := cacheAwareReconciler{ledger: ledgerService, reports: reportsService, logger: logger}
	entriesService.SetReconciler(reconciler)
	billingService.SetReconciler(reconciler)
	cashflowService.SetReconciler(reconciler)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterdata.NewHandler(logger, masterdataService),
		EntriesHandler:    entries.NewHandler(logger, entriesService),
		BillingHandler:    billing.NewHandler(logger, billingService),
		CashflowHandler:   cashflow.NewHandler(logger, cashflowService),
		ReportsHandler:    reports.NewHandler(logger, reportsService),
		JobsHandler:       jobsHandler,
		Pool:              dbpool,
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

// cacheAwareReconciler reconciles the book, then invalidates cached
// reports so readers never see balances older than the last mutation.
type cacheAwareReconciler struct {
	ledger  *ledger.Service
	reports *reports.Service
	logger  *slog.Logger
}

func (r cacheAwareReconciler) Reconcile(ctx context.Context) error {
	if err := r.ledger.Reconcile(ctx); err != nil {
		return err
	}
	if err := r.reports.InvalidateCache(ctx); err != nil {
		r.logger.Warn("report cache invalidation", slog.Any("error", err))
	}
	return nil
}
