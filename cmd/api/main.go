package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/media-locator/internal/api/http"
	"github.com/spec-kit/media-locator/internal/api/http/handlers"
	"github.com/spec-kit/media-locator/internal/auth"
	"github.com/spec-kit/media-locator/internal/catalog"
	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/events"
	"github.com/spec-kit/media-locator/internal/observability"
	"github.com/spec-kit/media-locator/internal/persistence"
	"github.com/spec-kit/media-locator/internal/repository"
	"github.com/spec-kit/media-locator/internal/service"
	"github.com/spec-kit/media-locator/internal/worker"
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

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	accountStore := repository.NewAccountStore(pool)
	historyRepo := repository.NewSearchHistoryRepository(pool)

	tokens := auth.NewTokenManager(cfg.Auth)
	identityService := service.NewIdentityService(cfg.Auth, accountStore, tokens, logger)

	catalogClient := catalog.NewOpenVerseClient(cfg.OpenVerse, redis, logger)
	searchService := service.NewSearchService(catalogClient, redis, historyRepo, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, accountStore)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics)
	authHandler := handlers.NewAuthHandler(identityService, dispatcher, logger)
	accountsHandler := handlers.NewAccountsHandler(identityService, dispatcher, logger)
	mediaHandler := handlers.NewMediaHandler(searchService)
	historyHandler := handlers.NewHistoryHandler(searchService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Accounts:       accountsHandler,
		Media:          mediaHandler,
		History:        historyHandler,
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
