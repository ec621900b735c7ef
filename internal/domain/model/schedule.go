package model

import (
	"time"

	"stripe-installments/internal/domain"
)

// InstallmentRequest is the validated input for provisioning a plan.
// TotalMinor is the full purchase amount in minor currency units (cents).
type InstallmentRequest struct {
	TotalMinor  int64
	CycleCount  int
	Currency    string
	Description string
}

// InstallmentSchedule is the derived billing schedule. Immutable once computed.
// PerCycleMinor*CycleCount reconstructs TotalMinor within CycleCount-1 minor
// units of rounding slack, unless the per-cycle minimum floor applied.
type InstallmentSchedule struct {
	TotalMinor    int64
	PerCycleMinor int64
	CycleCount    int
	Currency      string
	// CancelAt is the exclusive upper bound after which no further charge
	// may occur. The provider is instructed to stop billing at this instant.
	CancelAt time.Time
}

// PlanHandle is what provisioning hands back to the caller. PlanID may be
// empty until the provider assigns a subscription id on checkout completion.
type PlanHandle struct {
	PlanID      string
	SessionID   string
	CheckoutURL string
}

// ComputeSchedule derives the per-cycle amount and auto-termination point for
// an installment plan. Rounding policy is round half up on the per-cycle
// amount; every cycle is charged the same fixed amount. The result is floored
// at minPerCycle, which for very small totals means the schedule intentionally
// over-collects relative to the requested total.
//
// now is injected so the computation stays deterministic and testable.
func ComputeSchedule(totalMinor int64, cycles int, minCycles, maxCycles int, minPerCycle int64, currency string, now time.Time) (*InstallmentSchedule, error) {
	if totalMinor < 1 {
		return nil, domain.ErrInvalidAmount
	}
	if cycles < minCycles || cycles > maxCycles {
		return nil, domain.ErrInvalidCycleCount
	}

	// round half up: (a + b/2) / b in integer arithmetic
	per := (totalMinor + int64(cycles)/2) / int64(cycles)
	if per < minPerCycle {
		per = minPerCycle
	}

	return &InstallmentSchedule{
		TotalMinor:    totalMinor,
		PerCycleMinor: per,
		CycleCount:    cycles,
		Currency:      currency,
		CancelAt:      addMonthsClamped(now, cycles),
	}, nil
}

// addMonthsClamped lands on the same day-of-month n months ahead, clamped to
// the last valid day of the target month (Jan 31 + 1 month -> Feb 28/29).
// time.AddDate would overflow into the following month instead.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
