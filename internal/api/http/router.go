package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-locator/internal/api/http/handlers"
	"github.com/spec-kit/media-locator/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Media          *handlers.MediaHandler
	History        *handlers.HistoryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/verify-signup", cfg.Auth.VerifySignup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh-token", cfg.Auth.RefreshToken)
	authGroup.Post("/revoke-token", cfg.Auth.RevokeToken)

	accounts := app.Group("/accounts", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	accounts.Post("/change-password", cfg.Accounts.ChangePassword)
	accounts.Post("/deactivate", cfg.Accounts.Deactivate)

	media := app.Group("/media", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	media.Get("/daily", cfg.Media.Daily)
	media.Get("/images", cfg.Media.SearchImages)
	media.Get("/images/:id", cfg.Media.GetImageDetail)
	media.Get("/audio", cfg.Media.SearchAudio)
	media.Get("/audio/:id", cfg.Media.GetAudioDetail)

	history := app.Group("/history", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	history.Post("/", cfg.History.Add)
	history.Get("/", cfg.History.ListMine)
	history.Delete("/:id", cfg.History.Delete)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/accounts/:id/activate", cfg.Accounts.AdminActivate)
	admin.Post("/accounts/:id/deactivate", cfg.Accounts.AdminDeactivate)
	admin.Post("/accounts/:id/role", cfg.Accounts.AdminChangeRole)
	admin.Delete("/accounts/:id", cfg.Accounts.AdminDelete)
	admin.Get("/history", cfg.History.ListAll)
}
