package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/api/http/handlers"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	Bridge         *handlers.BridgeHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
	RateLimit      config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Get("/redirect-to-wp", cfg.Bridge.Redirect)

	api := app.Group("/api")
	authn := cfg.AuthMiddleware.Handle
	guard := func(op auth.Operation) fiber.Handler {
		return auth.RequireOperation(cfg.Policy, op)
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/login", LoginRateLimit(cfg.RateLimit), cfg.Auth.Login)
	authGroup.Post("/wp-token", authn, guard(auth.OpMintFederationToken), cfg.Auth.FederationToken)

	users := api.Group("/users", authn)
	users.Get("/all", guard(auth.OpListUsers), cfg.Users.List)
	users.Post("/", guard(auth.OpCreateUser), cfg.Users.Create)
	users.Patch("/:userId", guard(auth.OpUpdateUser), cfg.Users.Update)

	tasks := api.Group("/tasks", authn)
	tasks.Get("/all", guard(auth.OpListAllTasks), cfg.Tasks.ListAll)
	tasks.Get("/my-tasks", guard(auth.OpListMyTasks), cfg.Tasks.ListMine)
	tasks.Post("/", guard(auth.OpCreateTask), cfg.Tasks.Create)
	tasks.Patch("/:taskId", guard(auth.OpUpdateTask), cfg.Tasks.Update)
	tasks.Delete("/:taskId", guard(auth.OpDeleteTask), cfg.Tasks.Delete)
}
