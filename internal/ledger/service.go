// Package ledger owns all credit movement. Every balance change in the
// system flows through Service.Append; nothing else writes wallets, so the
// materialized balance and the entry log cannot drift apart.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleansweep/backend/internal/models"
)

// Filter narrows History results. Zero values mean "no filter".
type Filter struct {
	Kinds       []models.EntryKind
	BookingRef  *uuid.UUID
	CampaignRef *string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// Divergence is one account whose materialized balance disagrees with the
// sum of its entries. Any divergence is a data-integrity fault.
type Divergence struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
	EntrySum  int64     `json:"entry_sum"`
}

// Store is the persistence contract for the ledger. AppendEntry must execute
// as one atomic unit: lock the wallet row, compute balance_after, reject a
// negative result (unless allowNegative), insert the entry and update the
// balance. On failure nothing is committed.
type Store interface {
	AppendEntry(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry, allowNegative bool) error
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	History(ctx context.Context, accountID uuid.UUID, f Filter) ([]models.LedgerEntry, error)
	HasCampaignGrant(ctx context.Context, accountID uuid.UUID, campaignCode string) (bool, error)
	Diverged(ctx context.Context) ([]Divergence, error)
}

// AppendInput describes one entry to append. Amount is signed.
type AppendInput struct {
	AccountID   uuid.UUID
	Kind        models.EntryKind
	Amount      int64
	Note        string
	BookingRef  *uuid.UUID
	CampaignRef *string
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Append validates and appends one entry inside the caller's transaction.
// Only adjustment entries may drive the balance negative; that path is
// reserved for the administrative surface, which applies its own balance
// check for ordinary manual debits.
func (s *Service) Append(ctx context.Context, tx pgx.Tx, in AppendInput) (*models.LedgerEntry, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntryKind, in.Kind)
	}

	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   in.AccountID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		BookingRef:  in.BookingRef,
		CampaignRef: in.CampaignRef,
		Note:        in.Note,
	}

	allowNegative := in.Kind == models.EntryAdjustment
	if err := s.store.AppendEntry(ctx, tx, entry, allowNegative); err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance returns the materialized balance. Missing wallets read as zero.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.store.Balance(ctx, accountID)
}

// History returns entries newest-first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, f Filter) ([]models.LedgerEntry, error) {
	return s.store.History(ctx, accountID, f)
}

// HasCampaignGrant reports whether an account already received a promo entry
// for the given campaign code. Used as the campaign idempotency check.
func (s *Service) HasCampaignGrant(ctx context.Context, accountID uuid.UUID, campaignCode string) (bool, error) {
	return s.store.HasCampaignGrant(ctx, accountID, campaignCode)
}

// Reconcile compares every materialized balance against the sum of its
// entries. A non-empty result means the sum invariant is broken.
func (s *Service) Reconcile(ctx context.Context) ([]Divergence, error) {
	return s.store.Diverged(ctx)
}
