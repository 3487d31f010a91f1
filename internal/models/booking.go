package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses
const (
	BookingStatusCreated   = "created"
	BookingStatusSettled   = "settled"
	BookingStatusApproved  = "approved"
	BookingStatusDisputed  = "disputed"
	BookingStatusResolved  = "resolved"
	BookingStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to
var ValidBookingTransitions = map[string][]string{
	BookingStatusCreated:   {BookingStatusSettled, BookingStatusCancelled},
	BookingStatusSettled:   {BookingStatusApproved, BookingStatusDisputed, BookingStatusResolved},
	BookingStatusDisputed:  {BookingStatusResolved},
	BookingStatusApproved:  {},
	BookingStatusResolved:  {},
	BookingStatusCancelled: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidBookingTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Cleaning types
const (
	CleaningBasic   = "basic"
	CleaningDeep    = "deep"
	CleaningMoveout = "moveout"
)

func IsValidCleaningType(t string) bool {
	return t == CleaningBasic || t == CleaningDeep || t == CleaningMoveout
}

// Dispute resolutions
const (
	DisputeNone         = "none"
	DisputeClientFavor  = "client_favor"
	DisputeCleanerFavor = "cleaner_favor"
	DisputePartial      = "partial"
)

// Booking represents one job. Rate and payout-percentage fields are snapshots
// taken at creation; live profile changes never reprice an existing booking.
// EstimatedQuarters and ActualQuarters are hours in quarter-hour units, so
// 2.25h is stored as 9 and no float ever touches billing math.
type Booking struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"client_id"`
	CleanerID         uuid.UUID  `json:"cleaner_id"`
	CleaningType      string     `json:"cleaning_type"`
	EstimatedQuarters int64      `json:"estimated_quarters"`
	ActualQuarters    *int64     `json:"actual_quarters,omitempty"`
	BaseRate          int64      `json:"base_rate"`
	AddonRate         int64      `json:"addon_rate"`
	TotalRate         int64      `json:"total_rate"`
	PayoutBPS         int        `json:"payout_bps"`
	EscrowReserved    int64      `json:"escrow_reserved"`
	FinalCharge       *int64     `json:"final_charge,omitempty"`
	RefundIssued      int64      `json:"refund_issued"`
	PaymentCaptured   bool       `json:"payment_captured"`
	Status            string     `json:"status"`
	DisputeStatus     string     `json:"dispute_status"`
	CheckInAt         *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt        *time.Time `json:"check_out_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EstimatedHours returns the estimate as fractional hours for display.
func (b *Booking) EstimatedHours() float64 {
	return float64(b.EstimatedQuarters) / 4
}
