// Package policy holds the rate and tier policy: pure lookups over the tier
// table. Nothing here mutates state or touches storage.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTier means the tier name is not in the table. Callers must
	// treat this as a data error, never substitute a default band.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidCleaningType means the cleaning type is unknown. Unknown
	// types never price as basic.
	ErrInvalidCleaningType = errors.New("invalid cleaning type")
)

// RateOutOfRangeError reports a rate outside the tier's allowed band.
type RateOutOfRangeError struct {
	Tier Tier
	Rate int64
	Min  int64
	Max  int64
}

func (e *RateOutOfRangeError) Error() string {
	return fmt.Sprintf("rate %d out of range for tier %s (allowed %d-%d)", e.Rate, e.Tier, e.Min, e.Max)
}

// Addon kinds for AddonRangeFor.
const (
	AddonDeep    = "deep"
	AddonMoveout = "moveout"
)

// TierForScore maps a reliability score to its tier. Out-of-range scores
// clamp to the nearest band.
func (t Table) TierForScore(score int) Tier {
	for _, tier := range tierOrder {
		if score <= t[tier].ScoreMax {
			return tier
		}
	}
	return tierOrder[len(tierOrder)-1]
}

// RateRangeFor returns the allowed base rate band for a tier.
func (t Table) RateRangeFor(tier Tier) (Range, error) {
	band, ok := t[tier]
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	return band.BaseRate, nil
}

// AddonRangeFor returns the allowed add-on band for a tier and addon kind.
func (t Table) AddonRangeFor(tier Tier, addonKind string) (Range, error) {
	band, ok := t[tier]
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	switch addonKind {
	case AddonDeep:
		return band.DeepAddon, nil
	case AddonMoveout:
		return band.MoveoutAddon, nil
	default:
		return Range{}, fmt.Errorf("%w: unknown addon kind %q", ErrInvalidCleaningType, addonKind)
	}
}

// ValidateRate checks a base rate against the tier's band.
func (t Table) ValidateRate(rate int64, tier Tier) error {
	r, err := t.RateRangeFor(tier)
	if err != nil {
		return err
	}
	if !r.Contains(rate) {
		return &RateOutOfRangeError{Tier: tier, Rate: rate, Min: r.Min, Max: r.Max}
	}
	return nil
}

// ValidateAddonRate checks an add-on rate against the tier's band.
func (t Table) ValidateAddonRate(rate int64, tier Tier, addonKind string) error {
	r, err := t.AddonRangeFor(tier, addonKind)
	if err != nil {
		return err
	}
	if !r.Contains(rate) {
		return &RateOutOfRangeError{Tier: tier, Rate: rate, Min: r.Min, Max: r.Max}
	}
	return nil
}

// PayoutBPS returns the payout share for a tier in basis points.
func (t Table) PayoutBPS(tier Tier) (int, error) {
	band, ok := t[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	return band.PayoutBPS, nil
}

// PayoutFraction returns the payout share as a decimal fraction (e.g. 0.7).
func (t Table) PayoutFraction(tier Tier) (decimal.Decimal, error) {
	bps, err := t.PayoutBPS(tier)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(int64(bps), -4), nil
}

// SelectedAddon resolves the add-on rate for a cleaning type: basic takes no
// add-on, deep and moveout take their respective rates. Unknown types are an
// error, never a silent zero.
func SelectedAddon(cleaningType string, deepRate, moveoutRate int64) (int64, error) {
	switch cleaningType {
	case "basic":
		return 0, nil
	case "deep":
		return deepRate, nil
	case "moveout":
		return moveoutRate, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCleaningType, cleaningType)
	}
}

// TotalRate is the hourly rate actually billed.
func TotalRate(base, addon int64) int64 {
	return base + addon
}

// CeilQuarters converts worked time to billable quarter-hours, always
// rounding up: time actually spent is never under-billed. 2h07m is 9
// quarters (2.25h), not 8.
func CeilQuarters(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	const quarter = 15 * time.Minute
	q := int64(d / quarter)
	if d%quarter != 0 {
		q++
	}
	return q
}

// CreditsForQuarters converts quarter-hours x hourly rate to whole credits,
// rounding to the nearest credit with ties going up.
func CreditsForQuarters(quarters, hourlyRate int64) int64 {
	hours := decimal.New(quarters, 0).Div(decimal.New(4, 0))
	// decimal.Round is half away from zero; amounts here are non-negative,
	// so that is exactly round-half-up.
	return hours.Mul(decimal.New(hourlyRate, 0)).Round(0).IntPart()
}

// AmountDue converts earned credits to currency owed at a payout share.
// Credits peg 1:1 to the currency unit; only the share makes it fractional.
func AmountDue(credits int64, payoutBPS int) decimal.Decimal {
	return decimal.New(credits, 0).Mul(decimal.New(int64(payoutBPS), -4)).Round(2)
}
