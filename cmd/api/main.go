package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/taskflow/internal/api/http"
	"github.com/spec-kit/taskflow/internal/api/http/handlers"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/bootstrap"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/federation"
	"github.com/spec-kit/taskflow/internal/observability"
	"github.com/spec-kit/taskflow/internal/persistence"
	"github.com/spec-kit/taskflow/internal/repository"
	"github.com/spec-kit/taskflow/internal/service"
	"github.com/spec-kit/taskflow/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		userRepo repository.UserRepository
		taskRepo repository.TaskRepository
	)
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.Pool)
		taskRepo = repository.NewTaskRepository(pg.Pool)
	} else {
		memUsers := repository.NewMemoryUserRepository()
		userRepo = memUsers
		taskRepo = repository.NewMemoryTaskRepository(memUsers)
	}

	if cfg.App.SeedDemo || !pg.Enabled() {
		if err := bootstrap.SeedDemo(ctx, userRepo, taskRepo, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	tokens := auth.NewTokenManager(cfg.Auth)
	policy := auth.NewPolicy()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, userRepo, tokens, dispatcher, logger)
	userService := service.NewUserService(cfg.Auth, userRepo, policy, dispatcher, logger)
	taskService := service.NewTaskService(cfg.Auth, service.TaskDependencies{
		TaskRepo: taskRepo,
		UserRepo: userRepo,
	}, policy, dispatcher, logger)
	federationService := service.NewFederationService(cfg.Auth, userRepo, tokens, federation.NewMinter(cfg.Federation), policy, dispatcher, logger)
	bridge := federation.NewBridge(cfg.Federation, federationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, nil, metrics),
		Auth: handlers.NewAuthHandler(authService, federationService, handlers.CookieConfig{
			Name:   cfg.Auth.SessionCookieName,
			Secure: cfg.App.Env == "production",
		}),
		Users:          handlers.NewUsersHandler(userService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Bridge:         handlers.NewBridgeHandler(bridge, cfg.Auth.SessionCookieName),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Policy:         policy,
		RateLimit:      cfg.RateLimit,
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
