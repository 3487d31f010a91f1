package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/services"
)

type AdminHandler struct {
	adminService *services.AdminService
	log          *zap.Logger
}

func NewAdminHandler(adminService *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, log: log}
}

// Grant credits a single account.
// POST /admin/credits/grant
func (h *AdminHandler) Grant(c *fiber.Ctx) error {
	var req dto.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	entry, err := h.adminService.Grant(c.Context(), middleware.GetAccountID(c), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}

// Debit removes credits from a single account. Fails rather than
// driving the balance negative.
// POST /admin/credits/debit
func (h *AdminHandler) Debit(c *fiber.Ctx) error {
	var req dto.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	entry, err := h.adminService.Debit(c.Context(), middleware.GetAccountID(c), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}

// CampaignGrant runs a bulk promotional grant over an audience selector.
// POST /admin/credits/campaign
func (h *AdminHandler) CampaignGrant(c *fiber.Ctx) error {
	var req dto.CampaignGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.CampaignCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "campaign_code is required"})
	}

	result, err := h.adminService.CampaignGrant(c.Context(),
		middleware.GetAccountID(c), req.CampaignCode, req.Audience, req.Amount, req.Reason)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *AdminHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrEmptyReason):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "account not found"})
	default:
		h.log.Error("admin adjustment failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}
