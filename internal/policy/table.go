package policy

// Tier is a performance band derived from a cleaner's reliability score.
type Tier string

const (
	TierDeveloping Tier = "Developing"
	TierSemiPro    Tier = "Semi Pro"
	TierPro        Tier = "Pro"
	TierElite      Tier = "Elite"
)

// legacyNames maps the pre-rebrand tier names still present in old records.
// Translation happens at the boundary only; policy logic never sees them.
var legacyNames = map[string]Tier{
	"Bronze":   TierDeveloping,
	"Silver":   TierSemiPro,
	"Gold":     TierPro,
	"Platinum": TierElite,
}

// FromName resolves a tier name, accepting legacy names.
func FromName(name string) (Tier, bool) {
	switch Tier(name) {
	case TierDeveloping, TierSemiPro, TierPro, TierElite:
		return Tier(name), true
	}
	if t, ok := legacyNames[name]; ok {
		return t, true
	}
	return "", false
}

// Range is an inclusive credits-per-hour band.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (r Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// Band is the policy row for one tier: score band, allowed rate ranges, and
// the payout share in basis points.
type Band struct {
	ScoreMin     int   `json:"score_min"`
	ScoreMax     int   `json:"score_max"`
	BaseRate     Range `json:"base_rate"`
	DeepAddon    Range `json:"deep_addon"`
	MoveoutAddon Range `json:"moveout_addon"`
	PayoutBPS    int   `json:"payout_bps"`
}

// Table is the tier policy table. It is configuration data: every rate
// validation and payout computation consults it, nothing hard-codes a band.
type Table map[Tier]Band

// WithPayoutBPS returns a copy of the table with the two-level payout
// schedule replaced: every tier below Elite gets standard, Elite gets elite.
func (t Table) WithPayoutBPS(standard, elite int) Table {
	out := make(Table, len(t))
	for tier, band := range t {
		if tier == TierElite {
			band.PayoutBPS = elite
		} else {
			band.PayoutBPS = standard
		}
		out[tier] = band
	}
	return out
}

// tierOrder is ascending by score band, used for clamping out-of-range scores.
var tierOrder = []Tier{TierDeveloping, TierSemiPro, TierPro, TierElite}

// TierOrder returns the tiers in ascending score order.
func TierOrder() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// DefaultTable returns the standard four-tier schedule. The payout share is
// two-level: Elite gets the top share, every other tier the standard one.
func DefaultTable() Table {
	return Table{
		TierDeveloping: {
			ScoreMin: 0, ScoreMax: 59,
			BaseRate:     Range{Min: 15, Max: 24},
			DeepAddon:    Range{Min: 5, Max: 10},
			MoveoutAddon: Range{Min: 8, Max: 15},
			PayoutBPS:    7000,
		},
		TierSemiPro: {
			ScoreMin: 60, ScoreMax: 74,
			BaseRate:     Range{Min: 25, Max: 35},
			DeepAddon:    Range{Min: 8, Max: 15},
			MoveoutAddon: Range{Min: 12, Max: 20},
			PayoutBPS:    7000,
		},
		TierPro: {
			ScoreMin: 75, ScoreMax: 89,
			BaseRate:     Range{Min: 36, Max: 50},
			DeepAddon:    Range{Min: 12, Max: 20},
			MoveoutAddon: Range{Min: 18, Max: 30},
			PayoutBPS:    7000,
		},
		TierElite: {
			ScoreMin: 90, ScoreMax: 100,
			BaseRate:     Range{Min: 51, Max: 80},
			DeepAddon:    Range{Min: 18, Max: 30},
			MoveoutAddon: Range{Min: 25, Max: 45},
			PayoutBPS:    8000,
		},
	}
}
