package handlers

import (
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/http/dto"
	"github.com/cleansweep/backend/internal/middleware"
	"github.com/cleansweep/backend/internal/repositories"
	"github.com/cleansweep/backend/internal/services"
)

type BookingHandler struct {
	escrowService *services.EscrowService
	bookingRepo   *repositories.BookingRepo
	log           *zap.Logger
}

func NewBookingHandler(escrowService *services.EscrowService, bookingRepo *repositories.BookingRepo, log *zap.Logger) *BookingHandler {
	return &BookingHandler{escrowService: escrowService, bookingRepo: bookingRepo, log: log}
}

// CreateBooking quotes the job and places the escrow hold.
// POST /bookings
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req dto.CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	quarters, ok := hoursToQuarters(req.EstimatedHours)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "estimated_hours must be positive"})
	}

	booking, balanceAfter, err := h.escrowService.QuoteAndHold(c.Context(), services.QuoteAndHoldInput{
		ClientID:          middleware.GetAccountID(c),
		CleanerID:         req.CleanerID,
		CleaningType:      req.CleaningType,
		EstimatedQuarters: quarters,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.QuoteResponse{Booking: booking, BalanceAfter: balanceAfter})
}

// GetBooking returns one booking the caller participates in.
// GET /bookings/:id
func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	booking, err := h.bookingRepo.GetByID(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	accountID := middleware.GetAccountID(c)
	if booking.ClientID != accountID && booking.CleanerID != accountID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "not a participant of this booking"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: booking})
}

// ListBookings lists the caller's bookings, newest first.
// GET /bookings
func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	bookings, err := h.bookingRepo.ListByAccount(c.Context(),
		middleware.GetAccountID(c), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("failed to list bookings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bookings})
}

// Checkout settles the booking against actual time worked.
// POST /bookings/:id/checkout
func (h *BookingHandler) Checkout(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	checkIn, err := time.Parse(time.RFC3339, req.CheckInAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid check_in_at"})
	}
	checkOut, err := time.Parse(time.RFC3339, req.CheckOutAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid check_out_at"})
	}

	booking, err := h.escrowService.Settle(c.Context(), id, checkIn, checkOut)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: booking})
}

// Approve realizes the cleaner's earning after the client verifies the work.
// POST /bookings/:id/approve
func (h *BookingHandler) Approve(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	earning, err := h.escrowService.Approve(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: earning})
}

// OpenDispute flags a settled booking as disputed.
// POST /bookings/:id/dispute
func (h *BookingHandler) OpenDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	booking, err := h.escrowService.OpenDispute(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: booking})
}

// ResolveDispute is the admin resolution endpoint.
// POST /bookings/:id/dispute/resolve
func (h *BookingHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	var req dto.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	booking, err := h.escrowService.ResolveDispute(c.Context(), id, req.Resolution, req.PartialRefund, middleware.GetAccountID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: booking})
}

// Cancel releases the hold on a booking that never started.
// POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}

	actorID := middleware.GetAccountID(c)
	booking, err := h.escrowService.Cancel(c.Context(), id, &actorID, "user")
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: booking})
}

func (h *BookingHandler) mapError(c *fiber.Ctx, err error) error {
	var credits *services.InsufficientCreditsError
	if errors.As(err, &credits) {
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ShortfallResponse{
			Error:     "insufficient credits",
			Required:  credits.Required,
			Available: credits.Available,
			Shortfall: credits.Shortfall,
		})
	}
	var state *services.InvalidBookingStateError
	if errors.As(err, &state) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: state.Error()})
	}
	if errors.Is(err, services.ErrAlreadyApproved) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "booking not found"})
	}
	h.log.Debug("booking operation failed", zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
}

// hoursToQuarters converts an hour estimate to quarter-hour units, rounding
// up at the quarter boundary so a 2.1h estimate books 2.25h. The epsilon
// keeps float noise like 2.2500000001 from rounding an exact quarter up.
func hoursToQuarters(hours float64) (int64, bool) {
	if hours <= 0 {
		return 0, false
	}
	q := hours * 4
	rounded := math.Round(q)
	if math.Abs(q-rounded) <= 1e-9 {
		return int64(rounded), true
	}
	return int64(math.Ceil(q)), true
}
