package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cleansweep/backend/internal/models"
)

// DB begins transactions. Satisfied by *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BookingStore is the minimal booking persistence interface the lifecycle
// controller needs. Tx-suffixed methods run inside the caller's transaction.
type BookingStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Booking, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
}

// EarningStore persists cleaner earnings. An earning walks
// pending -> batched -> paid; batched means a payout claimed it and the
// provider transfer is in flight, so batch selection must never see it.
type EarningStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.CleanerEarning) error
	ListPending(ctx context.Context, cleanerID *uuid.UUID) ([]models.CleanerEarning, error)
	MarkBatchedTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error
	MarkPaidTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error
	RevertBatchedTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
}

// PayoutStore persists payout batches.
type PayoutStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Payout) error
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, transferRef string) error
	MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error
}

// AccountStore exposes the account reads the engine needs; identity itself
// lives in the external store.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetCleanerProfile(ctx context.Context, accountID uuid.UUID) (*models.CleanerProfile, error)
	UpsertCleanerProfile(ctx context.Context, p *models.CleanerProfile) error
	Audience(ctx context.Context, audience string) ([]uuid.UUID, error)
}

// AuditStore records the mandatory audit trail.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}
