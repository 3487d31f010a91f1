package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles
const (
	RoleClient  = "client"
	RoleCleaner = "cleaner"
	RoleAdmin   = "admin"
)

// Account is the identity record mirrored from the external account store.
// The engine only reads it; identity verification happens upstream.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// CleanerProfile carries the pricing fields a cleaner controls plus the
// reliability score the platform computes. Rates are credits per hour and
// must sit inside the tier's allowed range at write time.
type CleanerProfile struct {
	AccountID        uuid.UUID `json:"account_id"`
	ReliabilityScore int       `json:"reliability_score"`
	BaseRate         int64     `json:"base_rate"`
	DeepAddonRate    int64     `json:"deep_addon_rate"`
	MoveoutAddonRate int64     `json:"moveout_addon_rate"`
	UpdatedAt        time.Time `json:"updated_at"`
}
