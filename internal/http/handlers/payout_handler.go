package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/repositories"
	"github.com/cleansweep/backend/internal/services"
)

type PayoutHandler struct {
	payoutService *services.PayoutService
	payoutRepo    *repositories.PayoutRepo
	earningRepo   *repositories.EarningRepo
	log           *zap.Logger
}

func NewPayoutHandler(payoutService *services.PayoutService, payoutRepo *repositories.PayoutRepo, earningRepo *repositories.EarningRepo, log *zap.Logger) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService, payoutRepo: payoutRepo, earningRepo: earningRepo, log: log}
}

// RunBatch triggers a payout batch for the given period. Normally the
// worker does this on a schedule; the endpoint exists for manual reruns.
// POST /admin/payouts/run
func (h *PayoutHandler) RunBatch(c *fiber.Ctx) error {
	var req dto.RunBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	periodEnd := time.Now().UTC()
	periodStart := periodEnd.AddDate(0, 0, -7)
	if req.PeriodStart != "" {
		t, err := time.Parse(time.RFC3339, req.PeriodStart)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid period_start"})
		}
		periodStart = t
	}
	if req.PeriodEnd != "" {
		t, err := time.Parse(time.RFC3339, req.PeriodEnd)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid period_end"})
		}
		periodEnd = t
	}
	if !periodStart.Before(periodEnd) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "period_start must precede period_end"})
	}

	result, err := h.payoutService.RunBatch(c.Context(), periodStart, periodEnd)
	if err != nil {
		h.log.Error("payout batch failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

// ListPayouts returns the calling cleaner's payout history.
// GET /payouts
func (h *PayoutHandler) ListPayouts(c *fiber.Ctx) error {
	payouts, err := h.payoutRepo.ListByCleaner(c.Context(),
		middleware.GetAccountID(c), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("failed to list payouts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: payouts})
}

// ListEarnings returns the calling cleaner's earnings, pending included.
// GET /earnings
func (h *PayoutHandler) ListEarnings(c *fiber.Ctx) error {
	earnings, err := h.earningRepo.ListByCleaner(c.Context(),
		middleware.GetAccountID(c), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("failed to list earnings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: earnings})
}
