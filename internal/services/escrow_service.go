package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
	"github.com/cleansweep/backend/internal/policy"
)

// EscrowService orchestrates the booking lifecycle: quote + hold at creation,
// checkout settlement, approval and dispute resolution. All money movement
// goes through the ledger inside the same transaction as the booking write,
// so a failed step leaves neither a booking nor an entry behind.
type EscrowService struct {
	db        DB
	bookings  BookingStore
	earnings  EarningStore
	accounts  AccountStore
	ledger    *ledger.Service
	audit     AuditStore
	publisher events.Publisher
	table     policy.Table
	log       *zap.Logger
}

func NewEscrowService(
	db DB,
	bookings BookingStore,
	earnings EarningStore,
	accounts AccountStore,
	ledgerSvc *ledger.Service,
	audit AuditStore,
	publisher events.Publisher,
	table policy.Table,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		db:        db,
		bookings:  bookings,
		earnings:  earnings,
		accounts:  accounts,
		ledger:    ledgerSvc,
		audit:     audit,
		publisher: publisher,
		table:     table,
		log:       log,
	}
}

type QuoteAndHoldInput struct {
	ClientID          uuid.UUID
	CleanerID         uuid.UUID
	CleaningType      string
	EstimatedQuarters int64
}

// QuoteAndHold prices the job from the cleaner's current profile, snapshots
// the rates and payout share onto a new booking, and places the escrow hold.
// The whole step is one transaction: a failed balance check creates nothing.
func (s *EscrowService) QuoteAndHold(ctx context.Context, in QuoteAndHoldInput) (*models.Booking, int64, error) {
	if !models.IsValidCleaningType(in.CleaningType) {
		return nil, 0, fmt.Errorf("%w: %q", policy.ErrInvalidCleaningType, in.CleaningType)
	}
	if in.EstimatedQuarters <= 0 {
		return nil, 0, fmt.Errorf("estimated hours must be positive")
	}

	profile, err := s.accounts.GetCleanerProfile(ctx, in.CleanerID)
	if err != nil {
		return nil, 0, fmt.Errorf("cleaner profile not found: %w", err)
	}

	addon, err := policy.SelectedAddon(in.CleaningType, profile.DeepAddonRate, profile.MoveoutAddonRate)
	if err != nil {
		return nil, 0, err
	}
	total := policy.TotalRate(profile.BaseRate, addon)
	if total <= 0 {
		return nil, 0, ErrCleanerRatesNotSet
	}
	escrow := policy.CreditsForQuarters(in.EstimatedQuarters, total)

	tier := s.table.TierForScore(profile.ReliabilityScore)
	payoutBPS, err := s.table.PayoutBPS(tier)
	if err != nil {
		return nil, 0, err
	}

	// Fast pre-check for a friendly failure; the authoritative check runs
	// again under the wallet row lock inside the transaction.
	available, err := s.ledger.Balance(ctx, in.ClientID)
	if err != nil {
		return nil, 0, err
	}
	if available < escrow {
		return nil, 0, &InsufficientCreditsError{
			Required:  escrow,
			Available: available,
			Shortfall: escrow - available,
		}
	}

	booking := &models.Booking{
		ID:                uuid.New(),
		ClientID:          in.ClientID,
		CleanerID:         in.CleanerID,
		CleaningType:      in.CleaningType,
		EstimatedQuarters: in.EstimatedQuarters,
		BaseRate:          profile.BaseRate,
		AddonRate:         addon,
		TotalRate:         total,
		PayoutBPS:         payoutBPS,
		EscrowReserved:    escrow,
		Status:            models.BookingStatusCreated,
		DisputeStatus:     models.DisputeNone,
	}

	var balanceAfter int64
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
			return err
		}
		entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			AccountID:  in.ClientID,
			Kind:       models.EntryHold,
			Amount:     -escrow,
			Note:       fmt.Sprintf("escrow hold for %s cleaning", in.CleaningType),
			BookingRef: &booking.ID,
		})
		if err != nil {
			return err
		}
		balanceAfter = entry.BalanceAfter
		return nil
	})
	if err != nil {
		return nil, 0, s.mapLedgerErr(err, escrow)
	}

	s.auditBooking(ctx, booking, &in.ClientID, "user", "booking_created",
		map[string]any{"escrow_reserved": escrow, "total_rate": total})
	s.publishBooking(ctx, booking, "", models.BookingStatusCreated)

	return booking, balanceAfter, nil
}

// Settle reconciles the hold against actual time worked at checkout. Actual
// hours are the quarter-hour ceiling of checkout minus check-in; the client's
// net debit for the booking must end up exactly final_charge, so the unused
// hold is released, or only the overrun is charged, never both sides.
func (s *EscrowService) Settle(ctx context.Context, bookingID uuid.UUID, checkIn, checkOut time.Time) (*models.Booking, error) {
	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("check-out must be after check-in")
	}

	var booking *models.Booking
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusCreated {
			return &InvalidBookingStateError{BookingID: b.ID, Status: b.Status, Op: "settle"}
		}

		quarters := policy.CeilQuarters(checkOut.Sub(checkIn))
		finalCharge := policy.CreditsForQuarters(quarters, b.TotalRate)

		switch {
		case finalCharge < b.EscrowReserved:
			refund := b.EscrowReserved - finalCharge
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				AccountID:  b.ClientID,
				Kind:       models.EntryRelease,
				Amount:     refund,
				Note:       "release of unused escrow at checkout",
				BookingRef: &b.ID,
			}); err != nil {
				return err
			}
			b.RefundIssued = refund
		case finalCharge > b.EscrowReserved:
			// Job ran long: charge only the overrun. The held amount is
			// already debited and must not be debited again.
			overrun := finalCharge - b.EscrowReserved
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				AccountID:  b.ClientID,
				Kind:       models.EntryCharge,
				Amount:     -overrun,
				Note:       "overtime charge at checkout",
				BookingRef: &b.ID,
			}); err != nil {
				return err
			}
		}

		b.ActualQuarters = &quarters
		b.FinalCharge = &finalCharge
		b.PaymentCaptured = true
		b.CheckInAt = &checkIn
		b.CheckOutAt = &checkOut
		b.Status = models.BookingStatusSettled
		booking = b
		return s.bookings.UpdateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, s.mapLedgerErr(err, 0)
	}

	s.auditBooking(ctx, booking, &booking.CleanerID, "user", "booking_settled",
		map[string]any{
			"actual_quarters": *booking.ActualQuarters,
			"final_charge":    *booking.FinalCharge,
			"refund_issued":   booking.RefundIssued,
		})
	s.publishBooking(ctx, booking, models.BookingStatusCreated, models.BookingStatusSettled)

	return booking, nil
}

// Approve realizes the cleaner's earning. Valid only from settled, and
// idempotent: a second call fails with ErrAlreadyApproved and there is never
// more than one earning per booking.
func (s *EscrowService) Approve(ctx context.Context, bookingID uuid.UUID, actorID uuid.UUID) (*models.CleanerEarning, error) {
	var earning *models.CleanerEarning
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == models.BookingStatusApproved {
			return ErrAlreadyApproved
		}
		if b.Status != models.BookingStatusSettled {
			return &InvalidBookingStateError{BookingID: b.ID, Status: b.Status, Op: "approve"}
		}

		e, err := s.createEarningTx(ctx, tx, b, *b.FinalCharge)
		if err != nil {
			return err
		}
		earning = e

		b.Status = models.BookingStatusApproved
		return s.bookings.UpdateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.auditEarning(ctx, earning, &actorID, "booking_approved")
	s.publishEarning(ctx, earning)

	return earning, nil
}

// OpenDispute flags a settled booking as disputed. Resolution still works
// directly from settled; this state only blocks approval while the dispute
// is open.
func (s *EscrowService) OpenDispute(ctx context.Context, bookingID uuid.UUID, actorID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusSettled {
			return &InvalidBookingStateError{BookingID: b.ID, Status: b.Status, Op: "dispute"}
		}
		b.Status = models.BookingStatusDisputed
		booking = b
		return s.bookings.UpdateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.auditBooking(ctx, booking, &actorID, "user", "dispute_opened", nil)
	s.publishBooking(ctx, booking, models.BookingStatusSettled, models.BookingStatusDisputed)
	return booking, nil
}

// ResolveDispute settles a dispute in the client's favor (full refund, no
// earning), the cleaner's favor (earning on the full charge), or partially
// (refund part, earning on the remainder at the snapshot share).
func (s *EscrowService) ResolveDispute(ctx context.Context, bookingID uuid.UUID, resolution string, partialRefund int64, actorID uuid.UUID) (*models.Booking, error) {
	switch resolution {
	case models.DisputeClientFavor, models.DisputeCleanerFavor:
	case models.DisputePartial:
		if partialRefund <= 0 {
			return nil, fmt.Errorf("partial resolution requires a positive refund amount")
		}
	default:
		return nil, fmt.Errorf("unknown dispute resolution %q", resolution)
	}

	var booking *models.Booking
	var earning *models.CleanerEarning
	var oldStatus string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusSettled && b.Status != models.BookingStatusDisputed {
			return &InvalidBookingStateError{BookingID: b.ID, Status: b.Status, Op: "resolve dispute"}
		}
		oldStatus = b.Status

		finalCharge := *b.FinalCharge
		switch resolution {
		case models.DisputeClientFavor:
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				AccountID:  b.ClientID,
				Kind:       models.EntryRefund,
				Amount:     finalCharge,
				Note:       "dispute resolved in client favor",
				BookingRef: &b.ID,
			}); err != nil {
				return err
			}
			b.RefundIssued += finalCharge

		case models.DisputeCleanerFavor:
			e, err := s.createEarningTx(ctx, tx, b, finalCharge)
			if err != nil {
				return err
			}
			earning = e

		case models.DisputePartial:
			if partialRefund >= finalCharge {
				return fmt.Errorf("partial refund %d must be below the final charge %d", partialRefund, finalCharge)
			}
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				AccountID:  b.ClientID,
				Kind:       models.EntryRefund,
				Amount:     partialRefund,
				Note:       "partial dispute refund",
				BookingRef: &b.ID,
			}); err != nil {
				return err
			}
			b.RefundIssued += partialRefund
			e, err := s.createEarningTx(ctx, tx, b, finalCharge-partialRefund)
			if err != nil {
				return err
			}
			earning = e
		}

		b.DisputeStatus = resolution
		b.Status = models.BookingStatusResolved
		booking = b
		return s.bookings.UpdateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.auditBooking(ctx, booking, &actorID, "admin", "dispute_resolved",
		map[string]any{"resolution": resolution, "partial_refund": partialRefund})
	s.publishBooking(ctx, booking, oldStatus, models.BookingStatusResolved)
	if earning != nil {
		s.publishEarning(ctx, earning)
	}

	return booking, nil
}

// Cancel releases the full hold on a booking that never started.
func (s *EscrowService) Cancel(ctx context.Context, bookingID uuid.UUID, actorID *uuid.UUID, actorType string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingStatusCreated {
			return &InvalidBookingStateError{BookingID: b.ID, Status: b.Status, Op: "cancel"}
		}
		if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			AccountID:  b.ClientID,
			Kind:       models.EntryRelease,
			Amount:     b.EscrowReserved,
			Note:       "booking cancelled, escrow released",
			BookingRef: &b.ID,
		}); err != nil {
			return err
		}
		b.RefundIssued = b.EscrowReserved
		b.Status = models.BookingStatusCancelled
		booking = b
		return s.bookings.UpdateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.auditBooking(ctx, booking, actorID, actorType, "booking_cancelled", nil)
	s.publishBooking(ctx, booking, models.BookingStatusCreated, models.BookingStatusCancelled)
	return booking, nil
}

// CancelExpired auto-cancels created bookings older than the cutoff. Used by
// the worker; failures on one booking do not stop the sweep.
func (s *EscrowService) CancelExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	expired, err := s.bookings.ListExpired(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, b := range expired {
		if _, err := s.Cancel(ctx, b.ID, nil, "system"); err != nil {
			s.log.Error("failed to cancel expired booking",
				zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// createEarningTx creates the single earning for a booking, guarded by the
// booking row lock held by the caller plus a unique index on booking_ref.
func (s *EscrowService) createEarningTx(ctx context.Context, tx pgx.Tx, b *models.Booking, credits int64) (*models.CleanerEarning, error) {
	e := &models.CleanerEarning{
		ID:            uuid.New(),
		CleanerID:     b.CleanerID,
		BookingRef:    b.ID,
		CreditsEarned: credits,
		PayoutBPS:     b.PayoutBPS,
		AmountDue:     policy.AmountDue(credits, b.PayoutBPS),
		Status:        models.EarningStatusPending,
	}
	if err := s.earnings.CreateTx(ctx, tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EscrowService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *EscrowService) mapLedgerErr(err error, required int64) error {
	var fundsErr *ledger.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		req := required
		if req == 0 {
			req = fundsErr.Requested
		}
		return &InsufficientCreditsError{
			Required:  req,
			Available: fundsErr.Available,
			Shortfall: req - fundsErr.Available,
		}
	}
	return err
}

func (s *EscrowService) auditBooking(ctx context.Context, b *models.Booking, actorID *uuid.UUID, actorType, action string, meta map[string]any) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: "booking",
		EntityID:   &b.ID,
		Meta:       meta,
	})
}

func (s *EscrowService) auditEarning(ctx context.Context, e *models.CleanerEarning, actorID *uuid.UUID, action string) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  "user",
		Action:     action,
		EntityType: "earning",
		EntityID:   &e.ID,
		Meta:       map[string]any{"booking_ref": e.BookingRef.String(), "credits": e.CreditsEarned},
	})
}

func (s *EscrowService) publishBooking(ctx context.Context, b *models.Booking, oldStatus, newStatus string) {
	_ = s.publisher.Publish(ctx, events.StreamBookings, events.Event{
		Type: events.EventBookingStatusChanged,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	})
}

func (s *EscrowService) publishEarning(ctx context.Context, e *models.CleanerEarning) {
	_ = s.publisher.Publish(ctx, events.StreamPayouts, events.Event{
		Type: events.EventEarningCreated,
		Payload: map[string]any{
			"earning_id": e.ID.String(),
			"cleaner_id": e.CleanerID.String(),
			"amount_due": e.AmountDue.String(),
		},
	})
}
