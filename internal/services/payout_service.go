package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/models"
)

// TransferClient moves currency to a cleaner through the external payout
// provider. Implementations must respect ctx timeouts; a slow provider must
// not block the ledger.
type TransferClient interface {
	Transfer(ctx context.Context, cleanerID uuid.UUID, amount decimal.Decimal, reference string) (transferRef string, err error)
}

// PendingGroup is one cleaner's aggregated pending earnings.
type PendingGroup struct {
	CleanerID    uuid.UUID       `json:"cleaner_id"`
	TotalCredits int64           `json:"total_credits"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	JobCount     int             `json:"job_count"`
	EarningIDs   []uuid.UUID     `json:"-"`
}

// BatchResult summarizes one RunBatch invocation.
type BatchResult struct {
	Processed int             `json:"processed"`
	Paid      int             `json:"paid"`
	Failed    int             `json:"failed"`
	Payouts   []models.Payout `json:"payouts"`
}

// PayoutService turns pending earnings into payouts. Each cleaner's batch is
// an independent transaction; one failing transfer never blocks the rest.
type PayoutService struct {
	db        DB
	earnings  EarningStore
	payouts   PayoutStore
	transfers TransferClient
	audit     AuditStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewPayoutService(
	db DB,
	earnings EarningStore,
	payouts PayoutStore,
	transfers TransferClient,
	audit AuditStore,
	publisher events.Publisher,
	log *zap.Logger,
) *PayoutService {
	return &PayoutService{
		db:        db,
		earnings:  earnings,
		payouts:   payouts,
		transfers: transfers,
		audit:     audit,
		publisher: publisher,
		log:       log,
	}
}

// CollectPending groups pending earnings by cleaner, preserving the store's
// deterministic cleaner order.
func (s *PayoutService) CollectPending(ctx context.Context, cleanerID *uuid.UUID) ([]PendingGroup, error) {
	pending, err := s.earnings.ListPending(ctx, cleanerID)
	if err != nil {
		return nil, err
	}

	var groups []PendingGroup
	index := map[uuid.UUID]int{}
	for _, e := range pending {
		i, ok := index[e.CleanerID]
		if !ok {
			i = len(groups)
			index[e.CleanerID] = i
			groups = append(groups, PendingGroup{CleanerID: e.CleanerID, TotalAmount: decimal.Zero})
		}
		groups[i].TotalCredits += e.CreditsEarned
		groups[i].TotalAmount = groups[i].TotalAmount.Add(e.AmountDue)
		groups[i].JobCount++
		groups[i].EarningIDs = append(groups[i].EarningIDs, e.ID)
	}
	return groups, nil
}

// RunBatch converts every cleaner's pending earnings into a payout for the
// period. Idempotent per period: once earnings are paid they are never
// selected again, so a rerun of an already-settled period pays nobody.
func (s *PayoutService) RunBatch(ctx context.Context, periodStart, periodEnd time.Time) (*BatchResult, error) {
	groups, err := s.CollectPending(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, g := range groups {
		payout, err := s.processCleaner(ctx, g, periodStart, periodEnd)
		result.Processed++
		if err != nil {
			result.Failed++
			s.log.Error("payout batch failed for cleaner",
				zap.String("cleaner_id", g.CleanerID.String()), zap.Error(err))
			if payout != nil {
				result.Payouts = append(result.Payouts, *payout)
			}
			continue
		}
		result.Paid++
		result.Payouts = append(result.Payouts, *payout)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "payout_batch_run",
		EntityType: "payout_batch",
		Meta: map[string]any{
			"period_start": periodStart,
			"period_end":   periodEnd,
			"processed":    result.Processed,
			"paid":         result.Paid,
			"failed":       result.Failed,
		},
	})
	return result, nil
}

func (s *PayoutService) processCleaner(ctx context.Context, g PendingGroup, periodStart, periodEnd time.Time) (*models.Payout, error) {
	payout := &models.Payout{
		ID:           uuid.New(),
		CleanerID:    g.CleanerID,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		TotalCredits: g.TotalCredits,
		TotalAmount:  g.TotalAmount,
		JobCount:     g.JobCount,
		Status:       models.PayoutStatusProcessing,
	}

	// Claim the earnings before calling the provider. A batched earning is
	// invisible to the next run, so a crash or a failed paid-recording after
	// a successful transfer can never pay the same earning twice.
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.payouts.CreateTx(ctx, tx, payout); err != nil {
			return err
		}
		return s.earnings.MarkBatchedTx(ctx, tx, g.EarningIDs, payout.ID)
	})
	if err != nil {
		return nil, err
	}

	transferRef, err := s.transfers.Transfer(ctx, g.CleanerID, g.TotalAmount, payout.ID.String())
	if err != nil {
		// Release the earnings back to pending so the next run retries them.
		reason := err.Error()
		revertErr := s.withTx(ctx, func(tx pgx.Tx) error {
			if err := s.payouts.MarkFailedTx(ctx, tx, payout.ID, reason); err != nil {
				return err
			}
			return s.earnings.RevertBatchedTx(ctx, tx, g.EarningIDs)
		})
		if revertErr != nil {
			// Earnings stay batched. Stuck, but never double-paid.
			s.log.Error("failed to release batched earnings",
				zap.String("payout_id", payout.ID.String()), zap.Error(revertErr))
		}
		payout.Status = models.PayoutStatusFailed
		payout.FailureReason = &reason
		s.publishPayout(ctx, payout, events.EventPayoutFailed)
		return payout, fmt.Errorf("%w: %v", ErrExternalTransferFailed, err)
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.payouts.MarkPaidTx(ctx, tx, payout.ID, transferRef); err != nil {
			return err
		}
		return s.earnings.MarkPaidTx(ctx, tx, g.EarningIDs, payout.ID)
	})
	if err != nil {
		return payout, err
	}

	payout.Status = models.PayoutStatusPaid
	payout.ExternalTransferRef = &transferRef
	s.publishPayout(ctx, payout, events.EventPayoutCompleted)
	return payout, nil
}

func (s *PayoutService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PayoutService) publishPayout(ctx context.Context, p *models.Payout, eventType string) {
	_ = s.publisher.Publish(ctx, events.StreamPayouts, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"payout_id":  p.ID.String(),
			"cleaner_id": p.CleanerID.String(),
			"amount":     p.TotalAmount.String(),
			"status":     p.Status,
		},
	})
}
