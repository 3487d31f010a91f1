package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/config"
	"github.com/cleansweep/backend/internal/db"
	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/policy"
	"github.com/cleansweep/backend/internal/repositories"
	"github.com/cleansweep/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	accountRepo := repositories.NewAccountRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	bookingRepo := repositories.NewBookingRepo(pool)
	earningRepo := repositories.NewEarningRepo(pool)
	payoutRepo := repositories.NewPayoutRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	table := policy.DefaultTable().WithPayoutBPS(cfg.StandardPayoutBPS, cfg.ElitePayoutBPS)
	ledgerService := ledger.NewService(walletRepo)
	transferClient := services.NewHTTPTransferClient(cfg.PayoutProviderURL, cfg.PayoutTransferTimeout, log)
	escrowService := services.NewEscrowService(pool, bookingRepo, earningRepo, accountRepo, ledgerService, auditRepo, publisher, table, log)
	payoutService := services.NewPayoutService(pool, earningRepo, payoutRepo, transferClient, auditRepo, publisher, log)

	log.Info("worker started")

	// Run jobs on tickers
	payoutTicker := time.NewTicker(cfg.PayoutInterval)
	reconcileTicker := time.NewTicker(cfg.ReconcileInterval)
	expiryTicker := time.NewTicker(cfg.ExpiryInterval)
	defer payoutTicker.Stop()
	defer reconcileTicker.Stop()
	defer expiryTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-payoutTicker.C:
			runPayoutBatch(ctx, payoutService, cfg, log)
		case <-reconcileTicker.C:
			runReconcile(ctx, ledgerService, log)
		case <-expiryTicker.C:
			runBookingExpiry(ctx, escrowService, cfg, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runPayoutBatch(ctx context.Context, payoutService *services.PayoutService, cfg *config.Config, log *zap.Logger) {
	periodEnd := time.Now().UTC()
	periodStart := periodEnd.Add(-cfg.PayoutInterval)

	result, err := payoutService.RunBatch(ctx, periodStart, periodEnd)
	if err != nil {
		log.Error("payout batch failed", zap.Error(err))
		return
	}
	log.Info("payout batch finished",
		zap.Int("processed", result.Processed),
		zap.Int("paid", result.Paid),
		zap.Int("failed", result.Failed),
	)
}

// runReconcile cross-checks every wallet balance against the sum of its
// ledger entries. A divergence means an invariant was broken somewhere and
// is treated as a critical integrity incident.
func runReconcile(ctx context.Context, ledgerService *ledger.Service, log *zap.Logger) {
	divergences, err := ledgerService.Reconcile(ctx)
	if err != nil {
		log.Error("ledger reconciliation failed", zap.Error(err))
		return
	}
	if len(divergences) == 0 {
		log.Info("ledger reconciliation clean")
		return
	}
	for _, d := range divergences {
		log.Error("wallet balance diverged from ledger",
			zap.String("account_id", d.AccountID.String()),
			zap.Int64("balance", d.Balance),
			zap.Int64("entry_sum", d.EntrySum),
		)
	}
}

func runBookingExpiry(ctx context.Context, escrowService *services.EscrowService, cfg *config.Config, log *zap.Logger) {
	cutoff := time.Now().UTC().Add(-cfg.BookingExpiry)
	cancelled, err := escrowService.CancelExpired(ctx, cutoff, 100)
	if err != nil {
		log.Error("booking expiry sweep failed", zap.Error(err))
		return
	}
	if cancelled > 0 {
		log.Info("expired bookings cancelled", zap.Int("count", cancelled))
	}
}
