package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	automationapp "github.com/stockledger/backend/internal/application/automation"
	billingapp "github.com/stockledger/backend/internal/application/billing"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/application/reconciliation"
	"github.com/stockledger/backend/internal/infrastructure/cache"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/numbering"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/scheduler"
	"github.com/stockledger/backend/internal/interfaces/http/handler"
	"github.com/stockledger/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stockledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories used outside a transaction scope
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	statusChangeRepo := persistence.NewGormStatusChangeRecordRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	planRepo := persistence.NewGormInstallmentPlanRepository(db.DB)
	logRepo := persistence.NewGormLogEntryRepository(db.DB)

	// Transaction scopes
	inventoryScope := persistence.NewGormInventoryTransactionScope(db.DB)
	billingScope := persistence.NewGormBillingTransactionScope(db.DB)
	automationScope := persistence.NewGormAutomationTransactionScope(db.DB)

	numbers := numbering.NewGenerator(db.DB)

	// Run lock store: Redis when reachable, in-memory otherwise
	var idemStore automationapp.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory run locks", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = memStore.Close() }()
		idemStore = memStore
	} else {
		defer func() { _ = redisStore.Close() }()
		idemStore = redisStore
	}

	// Application services
	lateRate := decimal.NewFromFloat(cfg.LateCharge.MonthlyRatePercent)
	reservationService := inventoryapp.NewReservationService(inventoryScope, log)
	installmentService := billingapp.NewInstallmentService(billingScope, numbers, lateRate, log)
	installmentQueries := billingapp.NewInstallmentQueryService(installmentRepo, planRepo)
	postingService := automationapp.NewPostingService(automationScope, logRepo, numbers, idemStore, log)
	sweepService := reconciliation.NewSweepService(inventoryScope, unitRepo, statusChangeRepo, invoiceRepo, log)

	// Background sweeps
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(cfg.Scheduler, sweepService, installmentService, log)
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
			defer cancel()
			if err := sched.Stop(ctx); err != nil {
				log.Error("Scheduler shutdown error", zap.Error(err))
			}
		}()
	}

	// HTTP server
	mode := gin.ReleaseMode
	if cfg.App.Env == "development" {
		mode = gin.DebugMode
	}
	engine := router.NewEngine(log, mode)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine)
	r.Register(handler.NewReservationHandler(reservationService))
	r.Register(handler.NewInstallmentHandler(installmentService, installmentQueries))
	r.Register(handler.NewAutomationHandler(postingService))
	r.Register(handler.NewReconciliationHandler(sweepService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shut down", zap.Error(err))
	}
	log.Info("Server stopped")
}
