package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/trailsense/hazardwatch-backend/internal/config"
	"github.com/trailsense/hazardwatch-backend/internal/handlers"
	"github.com/trailsense/hazardwatch-backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	hazardHandler *handlers.HazardHandler,
	moderationHandler *handlers.ModerationHandler,
	lifecycleHandler *handlers.LifecycleHandler,
	settingsHandler *handlers.SettingsHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Hazards — signed-in users
	hazards := api.Group("/hazards", middleware.JWTProtected(cfg))
	hazards.Post("/", hazardHandler.Submit)
	hazards.Get("/", hazardHandler.List)
	hazards.Get("/:id", hazardHandler.Get)
	hazards.Post("/:id/flag", hazardHandler.Flag)

	// Lifecycle — signed-in users; status powers detail-page badges
	hazards.Get("/:id/lifecycle", lifecycleHandler.Status)
	hazards.Post("/:id/extend", lifecycleHandler.Extend)
	hazards.Post("/:id/resolution", lifecycleHandler.SubmitReport)
	hazards.Put("/:id/resolution", lifecycleHandler.UpdateReport)
	hazards.Post("/:id/resolution/confirm", lifecycleHandler.Confirm)
	hazards.Delete("/:id/resolution/confirm", lifecycleHandler.Withdraw)

	// Moderation — moderator role required
	moderation := api.Group("/moderation",
		middleware.JWTProtected(cfg),
		middleware.ModeratorRequired(db, cfg),
	)
	moderation.Get("/queue", moderationHandler.List)
	moderation.Post("/queue/next", moderationHandler.Next)
	moderation.Post("/queue/:id/claim", moderationHandler.Claim)
	moderation.Post("/queue/:id/release", moderationHandler.Release)
	moderation.Post("/queue/:id/action", moderationHandler.Action)
	moderation.Get("/stats", moderationHandler.Stats)
	moderation.Post("/hazards/:id/finalize", lifecycleHandler.Finalize)
	moderation.Get("/hazards/:id/audit", lifecycleHandler.AuditTrail)

	// Screening settings — moderator role required
	moderation.Get("/settings", settingsHandler.Get)
	moderation.Put("/settings/:key", settingsHandler.Set)
	moderation.Delete("/settings/:key", settingsHandler.Delete)
}
