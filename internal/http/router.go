package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/config"
	"github.com/cleansweep/backend/internal/http/handlers"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/rbac"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	bookingHandler *handlers.BookingHandler,
	profileHandler *handlers.ProfileHandler,
	payoutHandler *handlers.PayoutHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Tier table (public, no auth required)
	api.Get("/tiers", profileHandler.ListTiers)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Wallet
	protected.Get("/wallet/balance", walletHandler.GetBalance)
	protected.Get("/wallet/history", walletHandler.GetHistory)
	protected.Post("/wallet/fund", walletHandler.Fund)

	// Cleaner profile and rates
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile/rates", profileHandler.UpdateRates)

	// Bookings and escrow lifecycle
	protected.Post("/bookings", middleware.RequirePermission(rbac.PermCreateBooking), bookingHandler.CreateBooking)
	protected.Get("/bookings", bookingHandler.ListBookings)
	protected.Get("/bookings/:id", bookingHandler.GetBooking)
	protected.Post("/bookings/:id/checkout", middleware.RequirePermission(rbac.PermCheckout), bookingHandler.Checkout)
	protected.Post("/bookings/:id/approve", middleware.RequirePermission(rbac.PermApproveBooking), bookingHandler.Approve)
	protected.Post("/bookings/:id/dispute", middleware.RequirePermission(rbac.PermOpenDispute), bookingHandler.OpenDispute)
	protected.Post("/bookings/:id/cancel", bookingHandler.Cancel)

	// Cleaner earnings and payouts
	protected.Get("/earnings", payoutHandler.ListEarnings)
	protected.Get("/payouts", payoutHandler.ListPayouts)

	// Admin surface
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Post("/bookings/:id/dispute/resolve", middleware.RequirePermission(rbac.PermResolveDispute), bookingHandler.ResolveDispute)
	admin.Post("/credits/grant", middleware.RequirePermission(rbac.PermGrantCredits), adminHandler.Grant)
	admin.Post("/credits/debit", middleware.RequirePermission(rbac.PermDebitCredits), adminHandler.Debit)
	admin.Post("/credits/campaign", middleware.RequirePermission(rbac.PermRunCampaign), adminHandler.CampaignGrant)
	admin.Post("/payouts/run", middleware.RequirePermission(rbac.PermRunPayouts), payoutHandler.RunBatch)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
