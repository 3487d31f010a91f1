package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payout statuses
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusFailed     = "failed"
)

// Payout is a batch settlement to one cleaner covering a period. Terminal
// once paid; a failed payout leaves its earnings pending for the next run.
type Payout struct {
	ID                  uuid.UUID       `json:"id"`
	CleanerID           uuid.UUID       `json:"cleaner_id"`
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
	TotalCredits        int64           `json:"total_credits"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	JobCount            int             `json:"job_count"`
	Status              string          `json:"status"`
	ExternalTransferRef *string         `json:"external_transfer_ref,omitempty"`
	FailureReason       *string         `json:"failure_reason,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
