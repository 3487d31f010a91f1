package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleansweep/backend/internal/models"
)

// recordingStore captures AppendEntry calls so the tests can see what the
// service decided without a database.
type recordingStore struct {
	Store
	appended      []*models.LedgerEntry
	allowNegative []bool
}

func (s *recordingStore) AppendEntry(_ context.Context, _ pgx.Tx, entry *models.LedgerEntry, allowNegative bool) error {
	balance := int64(0)
	if n := len(s.appended); n > 0 {
		balance = s.appended[n-1].BalanceAfter
	}
	after := balance + entry.Amount
	if after < 0 && !allowNegative {
		return &InsufficientFundsError{Available: balance, Requested: -entry.Amount}
	}
	entry.BalanceAfter = after
	s.appended = append(s.appended, entry)
	s.allowNegative = append(s.allowNegative, allowNegative)
	return nil
}

func TestAppend_RejectsInvalidKind(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store)

	_, err := svc.Append(context.Background(), nil, AppendInput{
		AccountID: uuid.New(),
		Kind:      "deposit",
		Amount:    10,
	})
	require.ErrorIs(t, err, ErrInvalidEntryKind)
	assert.Empty(t, store.appended)
}

func TestAppend_OnlyAdjustmentsMayGoNegative(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store)
	account := uuid.New()

	_, err := svc.Append(context.Background(), nil, AppendInput{
		AccountID: account,
		Kind:      models.EntryHold,
		Amount:    -50,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, int64(0), fundsErr.Available)
	assert.Equal(t, int64(50), fundsErr.Requested)

	entry, err := svc.Append(context.Background(), nil, AppendInput{
		AccountID: account,
		Kind:      models.EntryAdjustment,
		Amount:    -50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), entry.BalanceAfter)
	require.Len(t, store.allowNegative, 1)
	assert.True(t, store.allowNegative[0])
}

func TestAppend_AssignsIDAndCarriesRefs(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store)
	bookingRef := uuid.New()
	campaign := "SPRING26"

	entry, err := svc.Append(context.Background(), nil, AppendInput{
		AccountID:   uuid.New(),
		Kind:        models.EntryPromo,
		Amount:      25,
		Note:        "spring promo",
		BookingRef:  &bookingRef,
		CampaignRef: &campaign,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, bookingRef, *entry.BookingRef)
	assert.Equal(t, campaign, *entry.CampaignRef)
	assert.Equal(t, "spring promo", entry.Note)
}
