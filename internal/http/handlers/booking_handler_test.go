package handlers

import "testing"

func TestHoursToQuarters(t *testing.T) {
	tests := []struct {
		hours    float64
		quarters int64
		ok       bool
	}{
		{0.25, 1, true},
		{1, 4, true},
		{2.25, 9, true},
		// Off-quarter estimates round up to the next quarter.
		{2.1, 9, true},
		{0.1, 1, true},
		{2.26, 10, true},
		// Float noise on an exact quarter must not round up.
		{0.75000000000001, 3, true},
		{0, 0, false},
		{-1, 0, false},
	}

	for _, tt := range tests {
		got, ok := hoursToQuarters(tt.hours)
		if ok != tt.ok {
			t.Errorf("hoursToQuarters(%v) ok = %v, want %v", tt.hours, ok, tt.ok)
			continue
		}
		if ok && got != tt.quarters {
			t.Errorf("hoursToQuarters(%v) = %d, want %d", tt.hours, got, tt.quarters)
		}
	}
}
