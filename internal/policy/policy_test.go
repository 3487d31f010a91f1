package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForScore(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		score int
		want  Tier
	}{
		{0, TierDeveloping},
		{59, TierDeveloping},
		{60, TierSemiPro},
		{74, TierSemiPro},
		{75, TierPro},
		{89, TierPro},
		{90, TierElite},
		{100, TierElite},
		// Out-of-range scores clamp to the nearest band.
		{-5, TierDeveloping},
		{150, TierElite},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.TierForScore(tt.score), "score %d", tt.score)
	}
}

func TestFromName(t *testing.T) {
	tests := []struct {
		name string
		want Tier
		ok   bool
	}{
		{"Developing", TierDeveloping, true},
		{"Semi Pro", TierSemiPro, true},
		{"Elite", TierElite, true},
		// Legacy names resolve to the current tiers.
		{"Bronze", TierDeveloping, true},
		{"Silver", TierSemiPro, true},
		{"Gold", TierPro, true},
		{"Platinum", TierElite, true},
		{"Diamond", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FromName(tt.name)
		assert.Equal(t, tt.ok, ok, "name %q", tt.name)
		assert.Equal(t, tt.want, got, "name %q", tt.name)
	}
}

func TestValidateRate(t *testing.T) {
	table := DefaultTable()

	require.NoError(t, table.ValidateRate(25, TierSemiPro))
	require.NoError(t, table.ValidateRate(30, TierSemiPro))
	require.NoError(t, table.ValidateRate(35, TierSemiPro))

	err := table.ValidateRate(24, TierSemiPro)
	var oob *RateOutOfRangeError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, int64(24), oob.Rate)
	assert.Equal(t, int64(25), oob.Min)
	assert.Equal(t, int64(35), oob.Max)

	require.Error(t, table.ValidateRate(36, TierSemiPro))
	require.ErrorIs(t, table.ValidateRate(30, Tier("Mythic")), ErrInvalidTier)
}

func TestValidateAddonRate(t *testing.T) {
	table := DefaultTable()

	require.NoError(t, table.ValidateAddonRate(10, TierSemiPro, AddonDeep))
	require.Error(t, table.ValidateAddonRate(7, TierSemiPro, AddonDeep))
	require.NoError(t, table.ValidateAddonRate(20, TierSemiPro, AddonMoveout))
	require.Error(t, table.ValidateAddonRate(21, TierSemiPro, AddonMoveout))
	require.Error(t, table.ValidateAddonRate(10, TierSemiPro, "premium"))
}

func TestPayoutBPS(t *testing.T) {
	table := DefaultTable()

	for _, tier := range []Tier{TierDeveloping, TierSemiPro, TierPro} {
		bps, err := table.PayoutBPS(tier)
		require.NoError(t, err)
		assert.Equal(t, 7000, bps, "tier %s", tier)
	}
	bps, err := table.PayoutBPS(TierElite)
	require.NoError(t, err)
	assert.Equal(t, 8000, bps)

	_, err = table.PayoutBPS(Tier("Mythic"))
	require.ErrorIs(t, err, ErrInvalidTier)
}

func TestWithPayoutBPS(t *testing.T) {
	table := DefaultTable().WithPayoutBPS(6500, 7500)

	bps, err := table.PayoutBPS(TierPro)
	require.NoError(t, err)
	assert.Equal(t, 6500, bps)
	bps, err = table.PayoutBPS(TierElite)
	require.NoError(t, err)
	assert.Equal(t, 7500, bps)

	// The original table is untouched.
	bps, err = DefaultTable().PayoutBPS(TierElite)
	require.NoError(t, err)
	assert.Equal(t, 8000, bps)
}

func TestPayoutFraction(t *testing.T) {
	table := DefaultTable()
	frac, err := table.PayoutFraction(TierElite)
	require.NoError(t, err)
	assert.Equal(t, "0.8", frac.String())
}

func TestSelectedAddon(t *testing.T) {
	addon, err := SelectedAddon("basic", 10, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(0), addon)

	addon, err = SelectedAddon("deep", 10, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(10), addon)

	addon, err = SelectedAddon("moveout", 10, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(15), addon)

	// Unknown types are an error, never priced as basic.
	_, err = SelectedAddon("sparkle", 10, 15)
	require.ErrorIs(t, err, ErrInvalidCleaningType)
}

func TestCeilQuarters(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{-time.Hour, 0},
		{time.Minute, 1},
		{15 * time.Minute, 1},
		{16 * time.Minute, 2},
		{2 * time.Hour, 8},
		{2*time.Hour + 7*time.Minute, 9},
		{2*time.Hour + 30*time.Minute, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CeilQuarters(tt.d), "duration %s", tt.d)
	}
}

func TestCreditsForQuarters(t *testing.T) {
	tests := []struct {
		quarters int64
		rate     int64
		want     int64
	}{
		{12, 30, 90},  // 3h x 30
		{10, 30, 75},  // 2.5h x 30
		{9, 30, 68},   // 2.25h x 30 = 67.5, half rounds up
		{1, 30, 8},    // 0.25h x 30 = 7.5
		{9, 31, 70},   // 69.75 rounds up
		{4, 30, 30},
		{0, 30, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CreditsForQuarters(tt.quarters, tt.rate),
			"%d quarters at %d/h", tt.quarters, tt.rate)
	}
}

func TestAmountDue(t *testing.T) {
	assert.Equal(t, "52.5", AmountDue(75, 7000).String())
	assert.Equal(t, "80", AmountDue(100, 8000).String())
	assert.Equal(t, "3.5", AmountDue(5, 7000).String())
	assert.Equal(t, "0", AmountDue(0, 7000).String())
}
