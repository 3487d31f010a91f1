package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/models"
	"github.com/cleansweep/backend/internal/policy"
)

// ProfileService validates and persists cleaner pricing. Rates are gated by
// the tier the cleaner's current reliability score maps to; live rates only
// affect future quotes, existing bookings keep their snapshots.
type ProfileService struct {
	accounts AccountStore
	table    policy.Table
	log      *zap.Logger
}

func NewProfileService(accounts AccountStore, table policy.Table, log *zap.Logger) *ProfileService {
	return &ProfileService{accounts: accounts, table: table, log: log}
}

// ProfileView is a cleaner profile with its derived tier attached.
type ProfileView struct {
	models.CleanerProfile
	Tier      policy.Tier `json:"tier"`
	PayoutBPS int         `json:"payout_bps"`
}

func (s *ProfileService) Get(ctx context.Context, accountID uuid.UUID) (*ProfileView, error) {
	p, err := s.accounts.GetCleanerProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.view(p)
}

// UpdateRates validates the requested rates against the cleaner's tier band
// and persists them.
func (s *ProfileService) UpdateRates(ctx context.Context, accountID uuid.UUID, base, deep, moveout int64) (*ProfileView, error) {
	p, err := s.accounts.GetCleanerProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tier := s.table.TierForScore(p.ReliabilityScore)
	if err := s.table.ValidateRate(base, tier); err != nil {
		return nil, err
	}
	if err := s.table.ValidateAddonRate(deep, tier, policy.AddonDeep); err != nil {
		return nil, err
	}
	if err := s.table.ValidateAddonRate(moveout, tier, policy.AddonMoveout); err != nil {
		return nil, err
	}

	p.BaseRate = base
	p.DeepAddonRate = deep
	p.MoveoutAddonRate = moveout
	if err := s.accounts.UpsertCleanerProfile(ctx, p); err != nil {
		return nil, err
	}
	return s.view(p)
}

func (s *ProfileService) view(p *models.CleanerProfile) (*ProfileView, error) {
	tier := s.table.TierForScore(p.ReliabilityScore)
	bps, err := s.table.PayoutBPS(tier)
	if err != nil {
		return nil, err
	}
	return &ProfileView{CleanerProfile: *p, Tier: tier, PayoutBPS: bps}, nil
}
