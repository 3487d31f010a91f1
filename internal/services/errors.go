package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleansweep/backend/internal/ledger"
)

var (
	// ErrAlreadyApproved is returned when approve is called on a booking
	// that already produced its earning.
	ErrAlreadyApproved = errors.New("booking already approved")

	// ErrInsufficientBalance is returned for manual debits that would
	// overdraw; manual debits are not exempt from the non-negative rule.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrExternalTransferFailed wraps payout provider errors; the payout
	// stays failed and its earnings pending, so the batch is retryable.
	ErrExternalTransferFailed = errors.New("external transfer failed")

	// ErrEmptyReason rejects administrative operations without a reason.
	ErrEmptyReason = errors.New("reason is required")

	// ErrInvalidAmount rejects non-positive amounts on admin operations.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrCleanerRatesNotSet rejects quotes against a cleaner who has not
	// published rates yet. A zero rate would price the job at zero credits
	// and the booking could never produce an earning.
	ErrCleanerRatesNotSet = errors.New("cleaner has not set rates")
)

// InsufficientCreditsError reports a hold or charge that would overdraw the
// client wallet. Shortfall is always disclosed so the caller can prompt a
// top-up.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
	Shortfall int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d, shortfall %d",
		e.Required, e.Available, e.Shortfall)
}

func (e *InsufficientCreditsError) Unwrap() error { return ledger.ErrInsufficientFunds }

// InvalidBookingStateError reports a lifecycle operation called from a state
// it is not valid in.
type InvalidBookingStateError struct {
	BookingID uuid.UUID
	Status    string
	Op        string
}

func (e *InvalidBookingStateError) Error() string {
	return fmt.Sprintf("booking %s: cannot %s from status %s", e.BookingID, e.Op, e.Status)
}
