package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleansweep/backend/internal/models"
)

// Campaign audience selectors.
const (
	AudienceZeroBalance = "zero_balance"
	AudienceInactive90d = "inactive_90d"
	AudienceAllClients  = "all_clients"
)

// AccountRepo reads the account records mirrored from the external identity
// store, plus the cleaner pricing profiles the engine owns.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, created_at, last_active_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.CreatedAt, &a.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, created_at, last_active_at
		FROM accounts WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.CreatedAt, &a.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_active_at = now() WHERE id = $1`, id)
	return err
}

func (r *AccountRepo) GetCleanerProfile(ctx context.Context, accountID uuid.UUID) (*models.CleanerProfile, error) {
	var p models.CleanerProfile
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, reliability_score, base_rate, deep_addon_rate, moveout_addon_rate, updated_at
		FROM cleaner_profiles WHERE account_id = $1
	`, accountID).Scan(&p.AccountID, &p.ReliabilityScore, &p.BaseRate,
		&p.DeepAddonRate, &p.MoveoutAddonRate, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *AccountRepo) UpsertCleanerProfile(ctx context.Context, p *models.CleanerProfile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO cleaner_profiles (account_id, reliability_score, base_rate, deep_addon_rate, moveout_addon_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			reliability_score = EXCLUDED.reliability_score,
			base_rate = EXCLUDED.base_rate,
			deep_addon_rate = EXCLUDED.deep_addon_rate,
			moveout_addon_rate = EXCLUDED.moveout_addon_rate,
			updated_at = now()
		RETURNING updated_at
	`, p.AccountID, p.ReliabilityScore, p.BaseRate, p.DeepAddonRate, p.MoveoutAddonRate,
	).Scan(&p.UpdatedAt)
}

// Audience resolves a campaign audience selector to client account IDs.
func (r *AccountRepo) Audience(ctx context.Context, audience string) ([]uuid.UUID, error) {
	var query string
	switch audience {
	case AudienceZeroBalance:
		query = `
			SELECT a.id FROM accounts a
			LEFT JOIN wallets w ON w.account_id = a.id
			WHERE a.role = 'client' AND COALESCE(w.balance, 0) = 0
			ORDER BY a.id`
	case AudienceInactive90d:
		query = `
			SELECT id FROM accounts
			WHERE role = 'client'
			  AND (last_active_at IS NULL OR last_active_at < now() - interval '90 days')
			ORDER BY id`
	case AudienceAllClients:
		query = `SELECT id FROM accounts WHERE role = 'client' ORDER BY id`
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
