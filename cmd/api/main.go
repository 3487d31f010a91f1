package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/config"
	"github.com/cleansweep/backend/internal/db"
	"github.com/cleansweep/backend/internal/events"
	apphttp "github.com/cleansweep/backend/internal/http"
	"github.com/cleansweep/backend/internal/http/handlers"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/policy"
	"github.com/cleansweep/backend/internal/repositories"
	"github.com/cleansweep/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	accountRepo := repositories.NewAccountRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	bookingRepo := repositories.NewBookingRepo(pool)
	earningRepo := repositories.NewEarningRepo(pool)
	payoutRepo := repositories.NewPayoutRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Policy and services
	table := policy.DefaultTable().WithPayoutBPS(cfg.StandardPayoutBPS, cfg.ElitePayoutBPS)
	ledgerService := ledger.NewService(walletRepo)
	transferClient := services.NewHTTPTransferClient(cfg.PayoutProviderURL, cfg.PayoutTransferTimeout, log)

	escrowService := services.NewEscrowService(pool, bookingRepo, earningRepo, accountRepo, ledgerService, auditRepo, publisher, table, log)
	payoutService := services.NewPayoutService(pool, earningRepo, payoutRepo, transferClient, auditRepo, publisher, log)
	adminService := services.NewAdminService(pool, accountRepo, ledgerService, auditRepo, publisher, log)
	walletService := services.NewWalletService(pool, ledgerService, publisher, log)
	profileService := services.NewProfileService(accountRepo, table, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(accountRepo, cfg, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	bookingHandler := handlers.NewBookingHandler(escrowService, bookingRepo, log)
	profileHandler := handlers.NewProfileHandler(profileService, table, log)
	payoutHandler := handlers.NewPayoutHandler(payoutService, payoutRepo, earningRepo, log)
	adminHandler := handlers.NewAdminHandler(adminService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, walletHandler, bookingHandler, profileHandler, payoutHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
