package ledger

import (
	"errors"
	"fmt"
)

// ErrInsufficientFunds is returned when an append would drive the balance
// negative. Use errors.Is; the concrete *InsufficientFundsError carries the
// available balance for callers that need to report a shortfall.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidEntryKind is returned for a kind outside the closed enum.
var ErrInvalidEntryKind = errors.New("invalid ledger entry kind")

type InsufficientFundsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }
