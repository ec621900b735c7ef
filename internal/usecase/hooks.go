package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/adapter"
)

// LifecycleHooks receives exactly one call per unique lifecycle event. The
// ingestor guarantees at-most-once invocation; implementations stay free of
// dedup logic.
type LifecycleHooks interface {
	PlanActivated(ctx context.Context, ev *model.LifecycleEvent) error
	ChargeSucceeded(ctx context.Context, ev *model.LifecycleEvent) error
	ChargeFailed(ctx context.Context, ev *model.LifecycleEvent) error
	PlanEnded(ctx context.Context, ev *model.LifecycleEvent) error
	Unclassified(ctx context.Context, ev *model.LifecycleEvent) error
}

// Compile-time check
var _ LifecycleHooks = (*lifecycleHooks)(nil)

// lifecycleHooks is the default implementation: structured logging, plus
// arming the deferred auto-termination timestamp when a plan activates.
type lifecycleHooks struct {
	gateway adapter.BillingGateway
	log     *zerolog.Logger
}

func NewLifecycleHooks(gateway adapter.BillingGateway, logger *zerolog.Logger) *lifecycleHooks {
	return &lifecycleHooks{gateway: gateway, log: logger}
}

// metaCancelAt mirrors the metadata key the provisioner writes into the
// checkout session.
const metaCancelAt = "cancel_at_unix"

func (h *lifecycleHooks) PlanActivated(ctx context.Context, ev *model.LifecycleEvent) error {
	h.log.Info().Str("event_id", ev.EventID).Str("plan_id", ev.PlanID).Msg("plan activated")

	// The provider assigns the subscription id only at checkout completion,
	// so the termination point recorded at provisioning time is armed here.
	raw, ok := ev.Metadata[metaCancelAt]
	if !ok || ev.PlanID == "" {
		return nil
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.log.Warn().Str("event_id", ev.EventID).Str(metaCancelAt, raw).Msg("unparseable termination timestamp in metadata")
		return nil
	}
	if err := h.gateway.ScheduleTermination(ctx, ev.PlanID, time.Unix(unix, 0).UTC()); err != nil {
		return err
	}
	h.log.Info().Str("plan_id", ev.PlanID).Time("cancel_at", time.Unix(unix, 0).UTC()).Msg("auto-termination armed")
	return nil
}

func (h *lifecycleHooks) ChargeSucceeded(ctx context.Context, ev *model.LifecycleEvent) error {
	h.log.Info().
		Str("event_id", ev.EventID).
		Str("plan_id", ev.PlanID).
		Int64("amount_minor", ev.AmountMinor).
		Str("currency", ev.Currency).
		Msg("installment charge succeeded")
	return nil
}

func (h *lifecycleHooks) ChargeFailed(ctx context.Context, ev *model.LifecycleEvent) error {
	h.log.Warn().
		Str("event_id", ev.EventID).
		Str("plan_id", ev.PlanID).
		Msg("installment charge failed")
	return nil
}

func (h *lifecycleHooks) PlanEnded(ctx context.Context, ev *model.LifecycleEvent) error {
	h.log.Info().Str("event_id", ev.EventID).Str("plan_id", ev.PlanID).Msg("plan ended")
	return nil
}

func (h *lifecycleHooks) Unclassified(ctx context.Context, ev *model.LifecycleEvent) error {
	h.log.Debug().Str("event_id", ev.EventID).Str("provider_type", ev.ProviderType).Msg("unclassified provider event")
	return nil
}
