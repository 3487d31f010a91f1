package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
)

// AdminService is the manual grant/debit/campaign surface. Every operation
// requires an actor and a non-empty reason and produces an audit record with
// the before/after balances.
type AdminService struct {
	db        DB
	accounts  AccountStore
	ledger    *ledger.Service
	audit     AuditStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewAdminService(
	db DB,
	accounts AccountStore,
	ledgerSvc *ledger.Service,
	audit AuditStore,
	publisher events.Publisher,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		db:        db,
		accounts:  accounts,
		ledger:    ledgerSvc,
		audit:     audit,
		publisher: publisher,
		log:       log,
	}
}

// CampaignFailure is one account that could not be granted.
type CampaignFailure struct {
	AccountID uuid.UUID `json:"account_id"`
	Error     string    `json:"error"`
}

// CampaignResult reports partial-success campaign execution.
type CampaignResult struct {
	CampaignCode string            `json:"campaign_code"`
	Audience     string            `json:"audience"`
	SuccessCount int               `json:"success_count"`
	SkippedCount int               `json:"skipped_count"`
	ErrorCount   int               `json:"error_count"`
	Failures     []CampaignFailure `json:"failures,omitempty"`
}

// Grant credits an account with promo credits.
func (s *AdminService) Grant(ctx context.Context, actorID, accountID uuid.UUID, amount int64, reason string) (*models.LedgerEntry, error) {
	if err := validateAdminInput(amount, reason); err != nil {
		return nil, err
	}

	entry, err := s.appendSingle(ctx, ledger.AppendInput{
		AccountID: accountID,
		Kind:      models.EntryPromo,
		Amount:    amount,
		Note:      reason,
	})
	if err != nil {
		return nil, err
	}

	s.auditAdjustment(ctx, actorID, "credits_granted", accountID, entry, reason)
	s.publishCredit(ctx, accountID, amount, entry.BalanceAfter)
	return entry, nil
}

// Debit removes credits from an account. Manual debits must never overdraw:
// a shortfall fails with ErrInsufficientBalance instead of going negative,
// even though the underlying adjustment kind is allowed to for system-level
// corrections.
func (s *AdminService) Debit(ctx context.Context, actorID, accountID uuid.UUID, amount int64, reason string) (*models.LedgerEntry, error) {
	if err := validateAdminInput(amount, reason); err != nil {
		return nil, err
	}

	var entry *models.LedgerEntry
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		e, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			AccountID: accountID,
			Kind:      models.EntryAdjustment,
			Amount:    -amount,
			Note:      reason,
		})
		if err != nil {
			return err
		}
		// The append is re-checked here rather than pre-checked so the
		// decision happens under the same row lock that writes.
		if e.BalanceAfter < 0 {
			return fmt.Errorf("%w: debit of %d exceeds balance of %d",
				ErrInsufficientBalance, amount, e.BalanceAfter+amount)
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditAdjustment(ctx, actorID, "credits_debited", accountID, entry, reason)
	return entry, nil
}

// CampaignGrant applies a promo grant across a computed audience. Accounts
// already granted under the same campaign code are skipped, so reruns never
// double-grant; per-account failures are collected, never fatal.
func (s *AdminService) CampaignGrant(ctx context.Context, actorID uuid.UUID, campaignCode, audience string, amount int64, reason string) (*CampaignResult, error) {
	if err := validateAdminInput(amount, reason); err != nil {
		return nil, err
	}
	if campaignCode == "" {
		return nil, fmt.Errorf("campaign code is required")
	}

	ids, err := s.accounts.Audience(ctx, audience)
	if err != nil {
		return nil, err
	}

	result := &CampaignResult{CampaignCode: campaignCode, Audience: audience}
	for _, accountID := range ids {
		granted, err := s.ledger.HasCampaignGrant(ctx, accountID, campaignCode)
		if err == nil && granted {
			result.SkippedCount++
			continue
		}
		if err != nil {
			result.ErrorCount++
			result.Failures = append(result.Failures, CampaignFailure{AccountID: accountID, Error: err.Error()})
			continue
		}

		entry, err := s.appendSingle(ctx, ledger.AppendInput{
			AccountID:   accountID,
			Kind:        models.EntryPromo,
			Amount:      amount,
			Note:        reason,
			CampaignRef: &campaignCode,
		})
		if err != nil {
			result.ErrorCount++
			result.Failures = append(result.Failures, CampaignFailure{AccountID: accountID, Error: err.Error()})
			continue
		}
		result.SuccessCount++
		s.publishCredit(ctx, accountID, amount, entry.BalanceAfter)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &actorID,
		ActorType:  "admin",
		Action:     "campaign_grant",
		EntityType: "campaign",
		Reason:     reason,
		Meta: map[string]any{
			"campaign_code": campaignCode,
			"audience":      audience,
			"amount":        amount,
			"success_count": result.SuccessCount,
			"skipped_count": result.SkippedCount,
			"error_count":   result.ErrorCount,
		},
	})
	return result, nil
}

func (s *AdminService) appendSingle(ctx context.Context, in ledger.AppendInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		e, err := s.ledger.Append(ctx, tx, in)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

func (s *AdminService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

func (s *AdminService) auditAdjustment(ctx context.Context, actorID uuid.UUID, action string, accountID uuid.UUID, entry *models.LedgerEntry, reason string) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &actorID,
		ActorType:  "admin",
		Action:     action,
		EntityType: "wallet",
		EntityID:   &accountID,
		Reason:     reason,
		Meta: map[string]any{
			"entry_id":       entry.ID.String(),
			"amount":         entry.Amount,
			"balance_before": entry.BalanceAfter - entry.Amount,
			"balance_after":  entry.BalanceAfter,
		},
	})
}

func (s *AdminService) publishCredit(ctx context.Context, accountID uuid.UUID, amount, balanceAfter int64) {
	_ = s.publisher.Publish(ctx, events.StreamBookings, events.Event{
		Type: events.EventWalletCredited,
		Payload: map[string]any{
			"account_id":    accountID.String(),
			"amount":        amount,
			"balance_after": balanceAfter,
		},
	})
}

func validateAdminInput(amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if reason == "" {
		return ErrEmptyReason
	}
	return nil
}
