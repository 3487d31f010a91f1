package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
)

// WalletRepo implements ledger.Store on postgres. The wallet row is the
// per-account serialization point: AppendEntry locks it FOR UPDATE, so two
// concurrent holds against the same wallet cannot both pass the balance
// check.
type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

var _ ledger.Store = (*WalletRepo)(nil)

func (r *WalletRepo) AppendEntry(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry, allowNegative bool) error {
	// Materialize the wallet row on first touch, then lock it.
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (account_id, balance) VALUES ($1, 0)
		ON CONFLICT (account_id) DO NOTHING
	`, entry.AccountID); err != nil {
		return err
	}

	var balance int64
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE
	`, entry.AccountID).Scan(&balance); err != nil {
		return err
	}

	after := balance + entry.Amount
	if after < 0 && !allowNegative {
		return &ledger.InsufficientFundsError{Available: balance, Requested: -entry.Amount}
	}
	entry.BalanceAfter = after

	if err := tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, account_id, kind, amount, booking_ref, campaign_ref, note, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, entry.ID, entry.AccountID, string(entry.Kind), entry.Amount,
		entry.BookingRef, entry.CampaignRef, entry.Note, entry.BalanceAfter,
	).Scan(&entry.CreatedAt); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now() WHERE account_id = $2
	`, after, entry.AccountID)
	return err
}

func (r *WalletRepo) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		SELECT balance FROM wallets WHERE account_id = $1
	`, accountID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

func (r *WalletRepo) History(ctx context.Context, accountID uuid.UUID, f ledger.Filter) ([]models.LedgerEntry, error) {
	conds := []string{"account_id = $1"}
	args := []any{accountID}

	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		args = append(args, kinds)
		conds = append(conds, fmt.Sprintf("kind = ANY($%d)", len(args)))
	}
	if f.BookingRef != nil {
		args = append(args, *f.BookingRef)
		conds = append(conds, fmt.Sprintf("booking_ref = $%d", len(args)))
	}
	if f.CampaignRef != nil {
		args = append(args, *f.CampaignRef)
		conds = append(conds, fmt.Sprintf("campaign_ref = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, f.Offset)
	limitClause += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, kind, amount, booking_ref, campaign_ref, note, balance_after, created_at
		FROM ledger_entries
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY created_at DESC, id DESC`+limitClause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.Amount, &e.BookingRef,
			&e.CampaignRef, &e.Note, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = models.EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *WalletRepo) HasCampaignGrant(ctx context.Context, accountID uuid.UUID, campaignCode string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ledger_entries
			WHERE account_id = $1 AND kind = 'promo' AND campaign_ref = $2
		)
	`, accountID, campaignCode).Scan(&exists)
	return exists, err
}

func (r *WalletRepo) Diverged(ctx context.Context) ([]ledger.Divergence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.account_id, w.balance, COALESCE(SUM(e.amount), 0) AS entry_sum
		FROM wallets w
		LEFT JOIN ledger_entries e ON e.account_id = w.account_id
		GROUP BY w.account_id, w.balance
		HAVING w.balance <> COALESCE(SUM(e.amount), 0)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Divergence
	for rows.Next() {
		var d ledger.Divergence
		if err := rows.Scan(&d.AccountID, &d.Balance, &d.EntrySum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
