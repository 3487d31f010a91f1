package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{BookingStatusCreated, BookingStatusSettled, true},
		{BookingStatusSettled, BookingStatusApproved, true},
		{BookingStatusSettled, BookingStatusDisputed, true},
		{BookingStatusSettled, BookingStatusResolved, true},
		{BookingStatusDisputed, BookingStatusResolved, true},

		// Cancellation only before settlement
		{BookingStatusCreated, BookingStatusCancelled, true},
		{BookingStatusSettled, BookingStatusCancelled, false},
		{BookingStatusDisputed, BookingStatusCancelled, false},

		// Invalid transitions
		{BookingStatusCreated, BookingStatusApproved, false},
		{BookingStatusCreated, BookingStatusDisputed, false},
		{BookingStatusApproved, BookingStatusDisputed, false},
		{BookingStatusApproved, BookingStatusSettled, false},
		{BookingStatusResolved, BookingStatusApproved, false},
		{BookingStatusCancelled, BookingStatusSettled, false},
		{BookingStatusDisputed, BookingStatusApproved, false},
		{"nonexistent", BookingStatusSettled, false},
		{BookingStatusCreated, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		BookingStatusCreated, BookingStatusSettled, BookingStatusApproved,
		BookingStatusDisputed, BookingStatusResolved, BookingStatusCancelled,
	}

	for _, status := range allStatuses {
		if _, ok := ValidBookingTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidBookingTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{BookingStatusApproved, BookingStatusResolved, BookingStatusCancelled}
	for _, status := range terminal {
		transitions := ValidBookingTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestEntryKindValid(t *testing.T) {
	valid := []EntryKind{
		EntryPurchase, EntryHold, EntryRelease, EntryCharge,
		EntryRefund, EntryPromo, EntryAdjustment, EntryReversal,
	}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("kind %q should be valid", k)
		}
	}
	for _, k := range []EntryKind{"", "deposit", "HOLD", "bonus"} {
		if k.Valid() {
			t.Errorf("kind %q should be invalid", k)
		}
	}
}

func TestEstimatedHours(t *testing.T) {
	b := Booking{EstimatedQuarters: 9}
	if got := b.EstimatedHours(); got != 2.25 {
		t.Errorf("EstimatedHours() = %v, want 2.25", got)
	}
}
