package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/handlers"
	"github.com/tradingacademy/backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	paymentMethodHandler *handlers.PaymentMethodHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	planHandler *handlers.PlanHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", healthHandler.Check)

	// Current plan is public so the signup page can show the price.
	api.Get("/plans/active", planHandler.Active)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
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

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Payment methods (protected)
	methods := api.Group("/payment-methods", middleware.JWTProtected(cfg))
	methods.Post("/billing-key/init", paymentMethodHandler.InitBillingKey)
	methods.Post("/billing-key/register", paymentMethodHandler.CompleteBillingKey)
	methods.Post("/billing-key/direct", paymentMethodHandler.RegisterDirect)
	methods.Get("/", paymentMethodHandler.List)
	methods.Get("/:id", paymentMethodHandler.Get)
	methods.Delete("/:id", paymentMethodHandler.Delete)

	// Subscriptions (protected)
	subs := api.Group("/subscriptions", middleware.JWTProtected(cfg))
	subs.Get("/me", subscriptionHandler.Me)
	subs.Post("/:id/cancel", subscriptionHandler.Cancel)

	// Admin (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Post("/plans", planHandler.Create)
	admin.Get("/plans", planHandler.List)
	admin.Post("/subscriptions/:id/status", adminHandler.UpdateSubscriptionStatus)
	admin.Post("/billing/run", adminHandler.RunBilling)
}
