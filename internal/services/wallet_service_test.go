package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
)

func TestFund(t *testing.T) {
	led := newMemLedger()
	pub := &memPublisher{}
	svc := NewWalletService(fakeDB{}, ledger.NewService(led), pub, testLogger())
	account := uuid.New()

	entry, err := svc.Fund(context.Background(), account, 100, "card purchase")
	require.NoError(t, err)
	assert.Equal(t, models.EntryPurchase, entry.Kind)
	assert.Equal(t, int64(100), entry.BalanceAfter)

	balance, err := svc.Balance(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	assert.Len(t, pub.byType("wallet_credited"), 1)
}

func TestFund_RejectsNonPositiveAmount(t *testing.T) {
	led := newMemLedger()
	svc := NewWalletService(fakeDB{}, ledger.NewService(led), &memPublisher{}, testLogger())

	_, err := svc.Fund(context.Background(), uuid.New(), 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Fund(context.Background(), uuid.New(), -5, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBalanceSumMatchesEntries(t *testing.T) {
	led := newMemLedger()
	svc := NewWalletService(fakeDB{}, ledger.NewService(led), &memPublisher{}, testLogger())
	account := uuid.New()

	_, err := svc.Fund(context.Background(), account, 100, "")
	require.NoError(t, err)
	_, err = svc.Fund(context.Background(), account, 40, "")
	require.NoError(t, err)

	divergences, err := ledger.NewService(led).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, divergences)

	history, err := svc.History(context.Background(), account, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, int64(40), history[0].Amount)
	assert.Equal(t, int64(140), history[0].BalanceAfter)
}
