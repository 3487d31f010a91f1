package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleansweep/backend/internal/models"
	"github.com/cleansweep/backend/internal/policy"
)

func newProfileFixture(t *testing.T, score int) (*ProfileService, uuid.UUID) {
	t.Helper()
	accounts := newMemAccounts()
	id := uuid.New()
	accounts.profiles[id] = &models.CleanerProfile{
		AccountID:        id,
		ReliabilityScore: score,
		BaseRate:         30,
		DeepAddonRate:    10,
		MoveoutAddonRate: 15,
	}
	return NewProfileService(accounts, policy.DefaultTable(), testLogger()), id
}

func TestProfileGet(t *testing.T) {
	svc, id := newProfileFixture(t, 70)

	view, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, policy.TierSemiPro, view.Tier)
	assert.Equal(t, 7000, view.PayoutBPS)
	assert.Equal(t, int64(30), view.BaseRate)
}

func TestUpdateRates(t *testing.T) {
	svc, id := newProfileFixture(t, 70)

	view, err := svc.UpdateRates(context.Background(), id, 35, 12, 18)
	require.NoError(t, err)
	assert.Equal(t, int64(35), view.BaseRate)
	assert.Equal(t, int64(12), view.DeepAddonRate)
	assert.Equal(t, int64(18), view.MoveoutAddonRate)
}

func TestUpdateRates_RejectsRateBelowTierBand(t *testing.T) {
	svc, id := newProfileFixture(t, 70) // Semi Pro, base band 25-35

	_, err := svc.UpdateRates(context.Background(), id, 24, 10, 15)
	var oob *policy.RateOutOfRangeError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, policy.TierSemiPro, oob.Tier)
	assert.Equal(t, int64(24), oob.Rate)
	assert.Equal(t, int64(25), oob.Min)
	assert.Equal(t, int64(35), oob.Max)

	// Nothing persisted.
	view, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(30), view.BaseRate)
}

func TestUpdateRates_RejectsRateAboveTierBand(t *testing.T) {
	svc, id := newProfileFixture(t, 70)

	_, err := svc.UpdateRates(context.Background(), id, 36, 10, 15)
	var oob *policy.RateOutOfRangeError
	require.ErrorAs(t, err, &oob)
}

func TestUpdateRates_ValidatesAddonBands(t *testing.T) {
	svc, id := newProfileFixture(t, 70) // Semi Pro deep band 8-15

	_, err := svc.UpdateRates(context.Background(), id, 30, 5, 15)
	var oob *policy.RateOutOfRangeError
	require.ErrorAs(t, err, &oob)
}

func TestUpdateRates_EliteBand(t *testing.T) {
	svc, id := newProfileFixture(t, 95)

	view, err := svc.UpdateRates(context.Background(), id, 60, 20, 30)
	require.NoError(t, err)
	assert.Equal(t, policy.TierElite, view.Tier)
	assert.Equal(t, 8000, view.PayoutBPS)
}
