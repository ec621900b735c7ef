package model_test

import (
	"errors"
	"testing"
	"time"

	"stripe-installments/internal/domain"
	"stripe-installments/internal/domain/model"
)

func mustCompute(t *testing.T, total int64, cycles int, now time.Time) *model.InstallmentSchedule {
	t.Helper()
	s, err := model.ComputeSchedule(total, cycles, 2, 24, 50, "eur", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return s
}

func TestComputeSchedule_Validation(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("rejects non-positive amount", func(t *testing.T) {
		if _, err := model.ComputeSchedule(0, 3, 2, 24, 50, "eur", now); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects cycle count below minimum", func(t *testing.T) {
		if _, err := model.ComputeSchedule(10000, 1, 2, 24, 50, "eur", now); !errors.Is(err, domain.ErrInvalidCycleCount) {
			t.Errorf("expected ErrInvalidCycleCount, got %v", err)
		}
	})

	t.Run("rejects cycle count above maximum", func(t *testing.T) {
		if _, err := model.ComputeSchedule(10000, 25, 2, 24, 50, "eur", now); !errors.Is(err, domain.ErrInvalidCycleCount) {
			t.Errorf("expected ErrInvalidCycleCount, got %v", err)
		}
	})
}

func TestComputeSchedule_Rounding(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("100 euro over 3 cycles rounds half up", func(t *testing.T) {
		s := mustCompute(t, 10000, 3, now)
		if s.PerCycleMinor != 3333 {
			t.Errorf("expected per-cycle 3333, got %d", s.PerCycleMinor)
		}
		// reconstruction stays within cycles-1 cents of the requested total
		diff := s.PerCycleMinor*int64(s.CycleCount) - s.TotalMinor
		if diff < -2 || diff > 2 {
			t.Errorf("reconstruction off by %d minor units", diff)
		}
	})

	t.Run("per-cycle amount floors at the provider minimum", func(t *testing.T) {
		s := mustCompute(t, 100, 3, now)
		if s.PerCycleMinor != 50 {
			t.Errorf("expected floor of 50, got %d", s.PerCycleMinor)
		}
		// the schedule intentionally over-collects here; that is documented
		// behavior, not a defect
	})

	t.Run("reconstruction slack stays under cycle count", func(t *testing.T) {
		for _, total := range []int64{1, 99, 100, 999, 10000, 123457, 999999} {
			for cycles := 2; cycles <= 24; cycles++ {
				s := mustCompute(t, total, cycles, now)
				if s.PerCycleMinor < 50 {
					t.Fatalf("per-cycle below minimum: %d", s.PerCycleMinor)
				}
				rounded := (total + int64(cycles)/2) / int64(cycles)
				if rounded < 50 {
					continue // floor applied, reconstruction not expected
				}
				diff := s.PerCycleMinor*int64(s.CycleCount) - total
				if diff >= int64(cycles) || diff <= -int64(cycles) {
					t.Fatalf("total=%d cycles=%d: reconstruction off by %d", total, cycles, diff)
				}
			}
		}
	})
}

func TestComputeSchedule_Termination(t *testing.T) {
	t.Run("lands on the same day of month", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
		s := mustCompute(t, 10000, 4, now)
		want := time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)
		if !s.CancelAt.Equal(want) {
			t.Errorf("expected %v, got %v", want, s.CancelAt)
		}
	})

	t.Run("keeps the day when the target month is long enough", func(t *testing.T) {
		now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		s := mustCompute(t, 10000, 2, now)
		if s.CancelAt.Month() != time.March || s.CancelAt.Day() != 31 {
			t.Errorf("expected Mar 31, got %v", s.CancelAt)
		}
	})

	t.Run("february clamp", func(t *testing.T) {
		now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		s, err := model.ComputeSchedule(10000, 13, 2, 24, 50, "eur", now)
		if err != nil {
			t.Fatal(err)
		}
		// Jan 31 2025 + 13 months -> Feb 2026, which has 28 days
		want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
		if !s.CancelAt.Equal(want) {
			t.Errorf("expected %v, got %v", want, s.CancelAt)
		}
	})

	t.Run("deterministic for the same injected now", func(t *testing.T) {
		now := time.Date(2025, 8, 21, 17, 45, 3, 0, time.UTC)
		a := mustCompute(t, 54321, 7, now)
		b := mustCompute(t, 54321, 7, now)
		if !a.CancelAt.Equal(b.CancelAt) || a.PerCycleMinor != b.PerCycleMinor {
			t.Errorf("schedules differ for identical inputs: %+v vs %+v", a, b)
		}
	})
}
