package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
)

// WalletService is the read surface over the ledger plus the funding entry
// point. Actual payment capture is external; by the time Fund is called the
// money exists and the ledger just records the purchase.
type WalletService struct {
	db        DB
	ledger    *ledger.Service
	publisher events.Publisher
	log       *zap.Logger
}

func NewWalletService(db DB, ledgerSvc *ledger.Service, publisher events.Publisher, log *zap.Logger) *WalletService {
	return &WalletService{db: db, ledger: ledgerSvc, publisher: publisher, log: log}
}

func (s *WalletService) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.ledger.Balance(ctx, accountID)
}

func (s *WalletService) History(ctx context.Context, accountID uuid.UUID, f ledger.Filter) ([]models.LedgerEntry, error) {
	return s.ledger.History(ctx, accountID, f)
}

// Fund credits purchased credits to a wallet.
func (s *WalletService) Fund(ctx context.Context, accountID uuid.UUID, amount int64, note string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.LedgerEntry
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err = s.ledger.Append(ctx, tx, ledger.AppendInput{
		AccountID: accountID,
		Kind:      models.EntryPurchase,
		Amount:    amount,
		Note:      note,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.StreamBookings, events.Event{
		Type: events.EventWalletCredited,
		Payload: map[string]any{
			"account_id":    accountID.String(),
			"amount":        amount,
			"balance_after": entry.BalanceAfter,
		},
	})
	return entry, nil
}
