package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind is the closed set of ledger entry kinds. Free-form strings are
// rejected at the ledger boundary so an invalid kind can never be persisted.
type EntryKind string

const (
	EntryPurchase   EntryKind = "purchase"
	EntryHold       EntryKind = "hold"
	EntryRelease    EntryKind = "release"
	EntryCharge     EntryKind = "charge"
	EntryRefund     EntryKind = "refund"
	EntryPromo      EntryKind = "promo"
	EntryAdjustment EntryKind = "adjustment"
	EntryReversal   EntryKind = "reversal"
)

func (k EntryKind) Valid() bool {
	switch k {
	case EntryPurchase, EntryHold, EntryRelease, EntryCharge,
		EntryRefund, EntryPromo, EntryAdjustment, EntryReversal:
		return true
	}
	return false
}

// Wallet is the materialized credit balance for one account. It is written
// only by the ledger, in the same transaction as the entry that moves it.
type Wallet struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntry is an immutable, append-only record of one credit movement.
// Amount is signed: positive credits the account, negative debits it.
// Corrections are new reversal/adjustment entries, never updates.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Kind         EntryKind  `json:"kind"`
	Amount       int64      `json:"amount"`
	BookingRef   *uuid.UUID `json:"booking_ref,omitempty"`
	CampaignRef  *string    `json:"campaign_ref,omitempty"`
	Note         string     `json:"note"`
	BalanceAfter int64      `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
