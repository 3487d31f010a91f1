package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleansweep/backend/internal/models"
)

type PayoutRepo struct {
	pool *pgxpool.Pool
}

func NewPayoutRepo(pool *pgxpool.Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

func (r *PayoutRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Payout) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payouts (id, cleaner_id, period_start, period_end, total_credits, total_amount, job_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.CleanerID, p.PeriodStart, p.PeriodEnd, p.TotalCredits, p.TotalAmount, p.JobCount, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PayoutRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, transferRef string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts SET status = 'paid', external_transfer_ref = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, transferRef)
	return err
}

func (r *PayoutRepo) MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts SET status = 'failed', failure_reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, reason)
	return err
}

func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return scanPayout(r.pool.QueryRow(ctx, `
		SELECT id, cleaner_id, period_start, period_end, total_credits, total_amount, job_count,
		       status, external_transfer_ref, failure_reason, created_at, updated_at
		FROM payouts WHERE id = $1
	`, id))
}

func (r *PayoutRepo) ListByCleaner(ctx context.Context, cleanerID uuid.UUID, limit, offset int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, cleaner_id, period_start, period_end, total_credits, total_amount, job_count,
		       status, external_transfer_ref, failure_reason, created_at, updated_at
		FROM payouts WHERE cleaner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, cleanerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayout(row pgx.Row) (*models.Payout, error) {
	var p models.Payout
	err := row.Scan(&p.ID, &p.CleanerID, &p.PeriodStart, &p.PeriodEnd,
		&p.TotalCredits, &p.TotalAmount, &p.JobCount,
		&p.Status, &p.ExternalTransferRef, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
