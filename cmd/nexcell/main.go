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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nexcell-pos/nexcell-pos/internal/app"
	"github.com/nexcell-pos/nexcell-pos/internal/auth"
	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/catalog"
	"github.com/nexcell-pos/nexcell-pos/internal/customers"
	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/observability"
	"github.com/nexcell-pos/nexcell-pos/internal/purchases"
	"github.com/nexcell-pos/nexcell-pos/internal/repairs"
	"github.com/nexcell-pos/nexcell-pos/internal/reports"
	"github.com/nexcell-pos/nexcell-pos/internal/sales"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
	"github.com/nexcell-pos/nexcell-pos/internal/suppliers"
	"github.com/nexcell-pos/nexcell-pos/internal/workers"
	"github.com/nexcell-pos/nexcell-pos/jobs"
)

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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "nexcell_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	evaluator := authz.NewEvaluator(app.PublicPaths...)
	guard := authz.Middleware{Evaluator: evaluator, Logger: logger, Denials: metrics}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache subscribe", slog.Any("error", err))
	}
	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService, guard)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, idempotencyStore, reportsService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, guard, metrics)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	workersRepo := workers.NewRepository(dbpool)
	workersService := workers.NewService(workersRepo)
	workersHandler := workers.NewHandler(logger, workersService, guard)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, guard)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService, guard)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, guard)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, ledgerService, reportsService)
	salesHandler := sales.NewHandler(logger, salesService, guard)

	purchasesRepo := purchases.NewRepository(dbpool)
	purchasesService := purchases.NewService(purchasesRepo, ledgerService, reportsService)
	purchasesHandler := purchases.NewHandler(logger, purchasesService, guard)

	repairsRepo := repairs.NewRepository(dbpool)
	repairsService := repairs.NewService(repairsRepo)
	repairsHandler := repairs.NewHandler(logger, repairsService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Guard:            guard,
		AuthHandler:      authHandler,
		WorkersHandler:   workersHandler,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customersHandler,
		SuppliersHandler: suppliersHandler,
		SalesHandler:     salesHandler,
		PurchasesHandler: purchasesHandler,
		RepairsHandler:   repairsHandler,
		LedgerHandler:    ledgerHandler,
		ReportsHandler:   reportsHandler,
		JobsHandler:      jobsHandler,
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
