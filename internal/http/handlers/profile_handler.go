package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/policy"
	"github.com/cleansweep/backend/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	table          policy.Table
	log            *zap.Logger
}

func NewProfileHandler(profileService *services.ProfileService, table policy.Table, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, table: table, log: log}
}

// GetProfile returns the calling cleaner's profile with its derived tier.
// GET /profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	view, err := h.profileService.Get(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "cleaner profile not found"})
		}
		h.log.Error("failed to load profile", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}

// UpdateRates sets the cleaner's published rates, validated against the
// band their reliability tier allows.
// PUT /profile/rates
func (h *ProfileHandler) UpdateRates(c *fiber.Ctx) error {
	var req dto.UpdateRatesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	view, err := h.profileService.UpdateRates(c.Context(),
		middleware.GetAccountID(c), req.BaseRate, req.DeepAddonRate, req.MoveoutAddonRate)
	if err != nil {
		var oob *policy.RateOutOfRangeError
		if errors.As(err, &oob) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: oob.Error()})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "cleaner profile not found"})
		}
		h.log.Error("failed to update rates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}

// ListTiers publishes the tier table so clients can explain pricing.
// GET /tiers
func (h *ProfileHandler) ListTiers(c *fiber.Ctx) error {
	type tierInfo struct {
		Tier        string `json:"tier"`
		ScoreMin    int    `json:"score_min"`
		ScoreMax    int    `json:"score_max"`
		BaseRateMin int64  `json:"base_rate_min"`
		BaseRateMax int64  `json:"base_rate_max"`
		PayoutShare int    `json:"payout_share_bps"`
	}
	out := make([]tierInfo, 0, len(h.table))
	for _, tier := range policy.TierOrder() {
		band := h.table[tier]
		out = append(out, tierInfo{
			Tier:        string(tier),
			ScoreMin:    band.ScoreMin,
			ScoreMax:    band.ScoreMax,
			BaseRateMin: band.BaseRate.Min,
			BaseRateMax: band.BaseRate.Max,
			PayoutShare: band.PayoutBPS,
		})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}
