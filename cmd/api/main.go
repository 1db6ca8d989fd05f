package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/aftersales-service/internal/api/http"
	"github.com/spec-kit/aftersales-service/internal/api/http/handlers"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/cache"
	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/finance"
	"github.com/spec-kit/aftersales-service/internal/notify"
	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/persistence"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
	"github.com/spec-kit/aftersales-service/internal/service"
	"github.com/spec-kit/aftersales-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	var analyticsCache cache.AnalyticsCache
	switch cfg.Analytics.CacheBackend {
	case "redis":
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		analyticsCache = cache.NewRedisAnalyticsCache(redis.Universal(),
			cache.WithKeyPrefix(redis.KeyPrefix),
			cache.WithLogger(logger))
	default:
		analyticsCache = cache.NewMemoryAnalyticsCache(time.Now)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	loc := cfg.App.Location()

	notices := repository.NewLiabilityNoticeRepository()
	deps := service.Dependencies{
		DB:             pool,
		Tickets:        repository.NewTicketRepository(),
		Notices:        notices,
		Ledger:         repository.NewDebtLedgerRepository(),
		Audit:          repository.NewAuditRepository(),
		Sequences:      sequence.NewGenerator(repository.NewSequenceRepository(), sequence.WithLocation(loc)),
		Finance:        finance.NewHTTPClient(cfg.Finance.BaseURL, cfg.Finance.APIKey, cfg.Finance.Timeout()),
		FinanceTimeout: cfg.Finance.Timeout(),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	}

	ticketService := service.NewTicketService(deps)
	liabilityService := service.NewLiabilityService(deps)
	costClosureService := service.NewCostClosureService(deps)
	debtLedgerService := service.NewDebtLedgerService(deps, cfg.Deduction)
	analyticsService := service.NewAnalyticsService(deps, analyticsCache, cfg.Analytics.CacheTTL())

	var mailer notify.Mailer
	if sg := notify.NewSendGridMailer(cfg.Notification.SendGridAPIKey, cfg.Notification.EmailFrom, cfg.Notification.EmailFromName); sg != nil {
		mailer = sg
	}
	notificationService := service.NewNotificationService(dispatcher, mailer, logger, cfg.Notification)
	worker.StartEventSubscribers(dispatcher, notificationService, analyticsService)

	var reconciler *worker.ReconciliationWorker
	if cfg.Reconcile.Enabled {
		reconciler = worker.NewReconciliationWorker(pool, notices, metrics, logger, cfg.Reconcile.Cron, loc)
		if err := reconciler.Start(); err != nil {
			logger.Fatal("failed to schedule reconciliation", zap.Error(err))
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, costClosureService, liabilityService),
		Liability:      handlers.NewLiabilityHandler(liabilityService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService, loc),
		DebtLedger:     handlers.NewDebtLedgerHandler(debtLedgerService),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if reconciler != nil {
		reconciler.Stop(shutdownCtx)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notificationService.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
