package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stripe-installments/internal/config"
	"stripe-installments/internal/domain"
	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/adapter"
	"stripe-installments/internal/infra/metrics"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// ProvisionRequest is the validated input for creating an installment plan.
type ProvisionRequest struct {
	TotalMinor  int64
	CycleCount  int
	Currency    string // optional, falls back to the configured default
	Description string // optional, derived from the schedule when empty
	SuccessURL  string
	CancelURL   string
}

type PlanUseCase interface {
	// Provision derives the billing schedule and drives the provider through
	// price and checkout-session creation. Returns the redirect handle.
	Provision(ctx context.Context, req ProvisionRequest) (*model.PlanHandle, error)
	// Cancel instructs the provider to stop billing, immediately or at period
	// end, and returns the provider's authoritative cancellation state.
	Cancel(ctx context.Context, planID string, atPeriodEnd bool) (*adapter.CancellationState, error)
}

type planUC struct {
	gateway adapter.BillingGateway
	plan    config.PlanConfig
	log     *zerolog.Logger
	now     func() time.Time
}

func NewPlanUseCase(gateway adapter.BillingGateway, plan config.PlanConfig, logger *zerolog.Logger) *planUC {
	return &planUC{gateway: gateway, plan: plan, log: logger, now: time.Now}
}

func (u *planUC) Provision(ctx context.Context, req ProvisionRequest) (*model.PlanHandle, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = u.plan.Currency
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("currency must be a 3-letter ISO code: %w", domain.ErrInvalidArgument)
	}

	// Validate before any provider call so bad input never leaves partial
	// provider-side state behind.
	sched, err := model.ComputeSchedule(req.TotalMinor, req.CycleCount, u.plan.MinCycles, u.plan.MaxCycles, u.plan.MinPerCycle, currency, u.now())
	if err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = fmt.Sprintf("Installment plan (%d months): total %d.%02d %s", sched.CycleCount, sched.TotalMinor/100, sched.TotalMinor%100, strings.ToUpper(currency))
	}

	priceID, err := u.gateway.CreateRecurringPrice(ctx, sched.PerCycleMinor, currency, 1, desc)
	if err != nil {
		return nil, err
	}

	handle, err := u.gateway.CreateCheckoutSession(ctx, adapter.CheckoutSpec{
		PriceID:    priceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata: map[string]string{
			"total_minor":     fmt.Sprintf("%d", sched.TotalMinor),
			"cycles":          fmt.Sprintf("%d", sched.CycleCount),
			"per_cycle_minor": fmt.Sprintf("%d", sched.PerCycleMinor),
			"currency":        currency,
		},
		CancelAt: sched.CancelAt,
	})
	if err != nil {
		// The recurring price already exists at the provider. No compensating
		// delete: the orphan is an accepted operational cost, surfaced here.
		u.log.Warn().Str("price_id", priceID).Err(err).Msg("checkout session failed after price creation; price orphaned")
		return nil, err
	}

	metrics.IncPlanProvisioned(currency, sched.TotalMinor)
	u.log.Info().
		Str("session_id", handle.SessionID).
		Int64("total_minor", sched.TotalMinor).
		Int("cycles", sched.CycleCount).
		Int64("per_cycle_minor", sched.PerCycleMinor).
		Time("cancel_at", sched.CancelAt).
		Msg("installment plan provisioned")
	return handle, nil
}

func (u *planUC) Cancel(ctx context.Context, planID string, atPeriodEnd bool) (*adapter.CancellationState, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, fmt.Errorf("planId required: %w", domain.ErrInvalidArgument)
	}

	state, err := u.gateway.UpdateCancellation(ctx, planID, atPeriodEnd)
	if err != nil {
		return nil, err
	}

	metrics.IncPlanCancellation(atPeriodEnd)
	u.log.Info().
		Str("plan_id", state.PlanID).
		Bool("cancel_at_period_end", state.CancelAtPeriodEnd).
		Time("effective_at", state.EffectiveAt).
		Msg("plan cancellation applied")
	return state, nil
}
