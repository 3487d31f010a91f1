package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/models"
	"github.com/cleansweep/backend/internal/services"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// GetBalance returns the caller's credit balance.
// GET /me/wallet
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	accountID := middleware.GetAccountID(c)
	balance, err := h.walletService.Balance(c.Context(), accountID)
	if err != nil {
		h.log.Error("failed to read balance", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.BalanceResponse{AccountID: accountID.String(), Balance: balance})
}

// GetHistory returns ledger entries newest-first with optional filters.
// GET /me/wallet/history?kind=hold&booking_ref=...&from=...&to=...&limit=50&offset=0
func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	accountID := middleware.GetAccountID(c)

	var f ledger.Filter
	if kind := c.Query("kind"); kind != "" {
		k := models.EntryKind(kind)
		if !k.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown entry kind"})
		}
		f.Kinds = []models.EntryKind{k}
	}
	if ref := c.Query("booking_ref"); ref != "" {
		id, err := uuid.Parse(ref)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking_ref"})
		}
		f.BookingRef = &id
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid from timestamp"})
		}
		f.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid to timestamp"})
		}
		f.To = &t
	}
	f.Limit = c.QueryInt("limit", 50)
	f.Offset = c.QueryInt("offset", 0)

	entries, err := h.walletService.History(c.Context(), accountID, f)
	if err != nil {
		h.log.Error("failed to read history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

// Fund records a purchase top-up. Payment capture happens upstream.
// POST /me/wallet/fund
func (h *WalletHandler) Fund(c *fiber.Ctx) error {
	var req dto.FundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	note := req.Note
	if note == "" {
		note = "credit purchase"
	}

	entry, err := h.walletService.Fund(c.Context(), middleware.GetAccountID(c), req.Amount, note)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}
