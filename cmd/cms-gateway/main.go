// Command cms-gateway fronts the content hub. It turns federation tokens
// arriving as ?jwt= into native sessions and proxies everything else.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/taskflow/internal/api/http"
	"github.com/spec-kit/taskflow/internal/api/http/handlers"
	"github.com/spec-kit/taskflow/internal/cms"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/federation"
	"github.com/spec-kit/taskflow/internal/observability"
	"github.com/spec-kit/taskflow/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "cms-gateway")
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

	var accounts cms.AccountRepository = cms.NewMemoryAccountRepository()
	if pg.Enabled() {
		accounts = cms.NewAccountRepository(pg.Pool)
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	var sessions cms.SessionStore = cms.NewMemorySessionStore()
	if rdb.Enabled() {
		sessions = cms.NewRedisSessionStore(rdb.Client)
	}

	receiver := cms.NewReceiver(
		federation.NewDecoder(cfg.Federation.Secret, cfg.Federation.Issuer),
		accounts,
		sessions,
		cms.ReceiverConfig{
			CookieName:   cfg.Gateway.SessionCookieName,
			SessionTTL:   cfg.Gateway.SessionTTL(),
			SecureCookie: cfg.App.Env == "production",
		},
		logger,
	)

	metrics := observability.NewMetrics()
	health := handlers.NewHealthHandler("cms-gateway", cfg.App.Version, pg, rdb, metrics)

	app := fiber.New(fiber.Config{
		AppName:      "cms-gateway",
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)

	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)

	app.Use(receiver.Middleware())
	app.All("/*", func(c *fiber.Ctx) error {
		return proxy.Do(c, cfg.Gateway.UpstreamURL+c.OriginalURL())
	})

	go func() {
		if err := app.Listen(cfg.Gateway.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	_ = app.Shutdown()
}
