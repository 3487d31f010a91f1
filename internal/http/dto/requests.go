package dto

import "github.com/google/uuid"

type LoginRequest struct {
	Email string `json:"email"`
}

type FundRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

type CreateBookingRequest struct {
	CleanerID      uuid.UUID `json:"cleaner_id"`
	CleaningType   string    `json:"cleaning_type"`
	EstimatedHours float64   `json:"estimated_hours"`
}

type CheckoutRequest struct {
	CheckInAt  string `json:"check_in_at"`  // RFC3339
	CheckOutAt string `json:"check_out_at"` // RFC3339
}

type ResolveDisputeRequest struct {
	Resolution    string `json:"resolution"` // client_favor / cleaner_favor / partial
	PartialRefund int64  `json:"partial_refund,omitempty"`
}

type AdjustmentRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
}

type CampaignGrantRequest struct {
	CampaignCode string `json:"campaign_code"`
	Audience     string `json:"audience"` // zero_balance / inactive_90d / all_clients
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason"`
}

type RunBatchRequest struct {
	PeriodStart string `json:"period_start"` // RFC3339
	PeriodEnd   string `json:"period_end"`   // RFC3339
}

type UpdateRatesRequest struct {
	BaseRate         int64 `json:"base_rate"`
	DeepAddonRate    int64 `json:"deep_addon_rate"`
	MoveoutAddonRate int64 `json:"moveout_addon_rate"`
}
