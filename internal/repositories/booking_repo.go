package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleansweep/backend/internal/models"
)

type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

const bookingColumns = `
	id, client_id, cleaner_id, cleaning_type,
	estimated_quarters, actual_quarters,
	base_rate, addon_rate, total_rate, payout_bps,
	escrow_reserved, final_charge, refund_issued, payment_captured,
	status, dispute_status, check_in_at, check_out_at,
	created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.ClientID, &b.CleanerID, &b.CleaningType,
		&b.EstimatedQuarters, &b.ActualQuarters,
		&b.BaseRate, &b.AddonRate, &b.TotalRate, &b.PayoutBPS,
		&b.EscrowReserved, &b.FinalCharge, &b.RefundIssued, &b.PaymentCaptured,
		&b.Status, &b.DisputeStatus, &b.CheckInAt, &b.CheckOutAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) CreateTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	return tx.QueryRow(ctx, `
		INSERT INTO bookings (
			id, client_id, cleaner_id, cleaning_type, estimated_quarters,
			base_rate, addon_rate, total_rate, payout_bps,
			escrow_reserved, status, dispute_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, b.ID, b.ClientID, b.CleanerID, b.CleaningType, b.EstimatedQuarters,
		b.BaseRate, b.AddonRate, b.TotalRate, b.PayoutBPS,
		b.EscrowReserved, b.Status, b.DisputeStatus,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

// GetByIDForUpdate locks the booking row for the duration of tx so two
// concurrent lifecycle operations on the same booking serialize.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
}

// UpdateTx persists the mutable lifecycle fields.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	_, err := tx.Exec(ctx, `
		UPDATE bookings SET
			actual_quarters = $2, final_charge = $3, refund_issued = $4,
			payment_captured = $5, status = $6, dispute_status = $7,
			check_in_at = $8, check_out_at = $9, updated_at = now()
		WHERE id = $1
	`, b.ID, b.ActualQuarters, b.FinalCharge, b.RefundIssued,
		b.PaymentCaptured, b.Status, b.DisputeStatus, b.CheckInAt, b.CheckOutAt)
	return err
}

func (r *BookingRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE client_id = $1 OR cleaner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListExpired returns created bookings older than the cutoff, for the
// worker's auto-cancel job.
func (r *BookingRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC LIMIT $3
	`, models.BookingStatusCreated, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
