package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ShortfallResponse is the failure shape for balance checks: the shortfall
// is always disclosed so the caller can prompt a top-up.
type ShortfallResponse struct {
	Error     string `json:"error"`
	Required  int64  `json:"required"`
	Available int64  `json:"available"`
	Shortfall int64  `json:"shortfall"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

type QuoteResponse struct {
	Booking      any   `json:"booking"`
	BalanceAfter int64 `json:"balance_after"`
}
