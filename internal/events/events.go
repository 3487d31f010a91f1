package events

import "context"

// Streams
const (
	StreamBookings = "events:booking"
	StreamPayouts  = "events:payout"
)

// Event types
const (
	EventBookingStatusChanged = "booking_status_changed"
	EventWalletCredited       = "wallet_credited"
	EventEarningCreated       = "earning_created"
	EventPayoutCompleted      = "payout_completed"
	EventPayoutFailed         = "payout_failed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
