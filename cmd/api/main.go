package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civic-kit/municipal-services/internal/api/http"
	"github.com/civic-kit/municipal-services/internal/api/http/handlers"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/config"
	"github.com/civic-kit/municipal-services/internal/events"
	"github.com/civic-kit/municipal-services/internal/observability"
	"github.com/civic-kit/municipal-services/internal/persistence"
	"github.com/civic-kit/municipal-services/internal/repository"
	"github.com/civic-kit/municipal-services/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	store := repository.NewStore(pool)
	txManager := repository.NewTxManager(pool)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager, store.Users)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:      store.Users,
		Tokens:     tokenManager,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		Store:      store,
		Tx:         txManager,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Tx:         txManager,
		Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:     store,
		Tx:        txManager,
		Outbound:  service.NewLogNotifier(logger, cfg.Notification.EmailFrom),
		Logger:    logger,
		FeedLimit: cfg.Notification.FeedLimit,
	})
	notificationService.RegisterHandlers(dispatcher)
	statsService := service.NewStatsService(service.StatsDependencies{
		Store:  store,
		Cache:  redis,
		Logger: logger,
		TTL:    cfg.Stats.CacheTTL(),
	})
	catalogService := service.NewCatalogService(store)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
