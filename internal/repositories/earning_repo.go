package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleansweep/backend/internal/models"
)

type EarningRepo struct {
	pool *pgxpool.Pool
}

func NewEarningRepo(pool *pgxpool.Pool) *EarningRepo {
	return &EarningRepo{pool: pool}
}

// CreateTx inserts one earning. A unique index on booking_ref backs the
// one-earning-per-booking rule at the storage level.
func (r *EarningRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.CleanerEarning) error {
	return tx.QueryRow(ctx, `
		INSERT INTO cleaner_earnings (id, cleaner_id, booking_ref, credits_earned, payout_bps, amount_due, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, e.CleanerID, e.BookingRef, e.CreditsEarned, e.PayoutBPS, e.AmountDue, e.Status,
	).Scan(&e.CreatedAt)
}

func (r *EarningRepo) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*models.CleanerEarning, error) {
	var e models.CleanerEarning
	err := r.pool.QueryRow(ctx, `
		SELECT id, cleaner_id, booking_ref, credits_earned, payout_bps, amount_due, status, payout_id, created_at
		FROM cleaner_earnings WHERE booking_ref = $1
	`, bookingID).Scan(&e.ID, &e.CleanerID, &e.BookingRef, &e.CreditsEarned,
		&e.PayoutBPS, &e.AmountDue, &e.Status, &e.PayoutID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListPending returns pending earnings, optionally for one cleaner, ordered
// so batch grouping is deterministic.
func (r *EarningRepo) ListPending(ctx context.Context, cleanerID *uuid.UUID) ([]models.CleanerEarning, error) {
	query := `
		SELECT id, cleaner_id, booking_ref, credits_earned, payout_bps, amount_due, status, payout_id, created_at
		FROM cleaner_earnings WHERE status = 'pending'`
	args := []any{}
	if cleanerID != nil {
		query += ` AND cleaner_id = $1`
		args = append(args, *cleanerID)
	}
	query += ` ORDER BY cleaner_id, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEarnings(rows)
}

func (r *EarningRepo) ListByCleaner(ctx context.Context, cleanerID uuid.UUID, limit, offset int) ([]models.CleanerEarning, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, cleaner_id, booking_ref, credits_earned, payout_bps, amount_due, status, payout_id, created_at
		FROM cleaner_earnings WHERE cleaner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, cleanerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEarnings(rows)
}

// MarkBatchedTx claims pending earnings for a payout. Batched earnings are
// excluded from ListPending, so a payout in flight can never be selected by
// a concurrent or later batch.
func (r *EarningRepo) MarkBatchedTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE cleaner_earnings SET status = 'batched', payout_id = $1
		WHERE id = ANY($2) AND status = 'pending'
	`, payoutID, ids)
	return err
}

// MarkPaidTx settles batched earnings after the provider transfer succeeded.
func (r *EarningRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE cleaner_earnings SET status = 'paid', payout_id = $1
		WHERE id = ANY($2) AND status = 'batched'
	`, payoutID, ids)
	return err
}

// RevertBatchedTx releases claimed earnings after a failed transfer so the
// next batch run retries them.
func (r *EarningRepo) RevertBatchedTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE cleaner_earnings SET status = 'pending', payout_id = NULL
		WHERE id = ANY($1) AND status = 'batched'
	`, ids)
	return err
}

func scanEarnings(rows pgx.Rows) ([]models.CleanerEarning, error) {
	var out []models.CleanerEarning
	for rows.Next() {
		var e models.CleanerEarning
		if err := rows.Scan(&e.ID, &e.CleanerID, &e.BookingRef, &e.CreditsEarned,
			&e.PayoutBPS, &e.AmountDue, &e.Status, &e.PayoutID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
