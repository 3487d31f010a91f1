package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Earning statuses
const (
	EarningStatusPending = "pending"
	EarningStatusBatched = "batched"
	EarningStatusPaid    = "paid"
)

// CleanerEarning is created exactly once per settled booking, by approval or
// dispute resolution. A unique constraint on booking_ref enforces that.
// AmountDue is currency (credits are pegged 1:1, the payout share makes it
// fractional), so it is a decimal rather than int credits.
type CleanerEarning struct {
	ID            uuid.UUID       `json:"id"`
	CleanerID     uuid.UUID       `json:"cleaner_id"`
	BookingRef    uuid.UUID       `json:"booking_ref"`
	CreditsEarned int64           `json:"credits_earned"`
	PayoutBPS     int             `json:"payout_bps"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	Status        string          `json:"status"`
	PayoutID      *uuid.UUID      `json:"payout_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
