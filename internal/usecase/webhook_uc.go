package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"stripe-installments/internal/domain"
	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/adapter"
	"stripe-installments/internal/domain/ports/repository"
	"stripe-installments/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Ingest verifies, classifies and deduplicates one provider notification,
	// running the matching lifecycle hook at most once per event id.
	Ingest(ctx context.Context, rawBody []byte, signatureHeader string) (*model.LifecycleEvent, error)
}

type webhookUC struct {
	gateway adapter.BillingGateway
	store   repository.EventStore
	hooks   LifecycleHooks
	secret  string
	log     *zerolog.Logger
}

func NewWebhookUseCase(gateway adapter.BillingGateway, store repository.EventStore, hooks LifecycleHooks, webhookSecret string, logger *zerolog.Logger) *webhookUC {
	return &webhookUC{gateway: gateway, store: store, hooks: hooks, secret: webhookSecret, log: logger}
}

func (u *webhookUC) Ingest(ctx context.Context, rawBody []byte, signatureHeader string) (*model.LifecycleEvent, error) {
	if u.secret == "" {
		metrics.IncWebhookFailure("config")
		return nil, fmt.Errorf("webhook secret missing: %w", domain.ErrConfiguration)
	}

	// Nothing below runs on unauthenticated input.
	n, err := u.gateway.VerifyNotification(rawBody, signatureHeader, u.secret)
	if err != nil {
		metrics.IncWebhookFailure(failureReason(err))
		return nil, err
	}

	ev := Classify(n)

	first, err := u.store.MarkProcessed(ctx, ev)
	if err != nil {
		metrics.IncWebhookFailure("store")
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	if !first {
		metrics.IncWebhookDuplicate()
		u.log.Debug().Str("event_id", ev.EventID).Str("type", string(ev.Type)).Msg("duplicate notification skipped")
		return ev, nil
	}

	if err := u.dispatch(ctx, ev); err != nil {
		metrics.IncWebhookFailure("hook")
		return nil, fmt.Errorf("lifecycle hook %s: %w", ev.Type, err)
	}

	metrics.IncWebhookEvent(string(ev.Type))
	return ev, nil
}

func (u *webhookUC) dispatch(ctx context.Context, ev *model.LifecycleEvent) error {
	switch ev.Type {
	case model.EventPlanActivated:
		return u.hooks.PlanActivated(ctx, ev)
	case model.EventChargeSucceeded:
		return u.hooks.ChargeSucceeded(ctx, ev)
	case model.EventChargeFailed:
		return u.hooks.ChargeFailed(ctx, ev)
	case model.EventPlanEnded:
		return u.hooks.PlanEnded(ctx, ev)
	default:
		return u.hooks.Unclassified(ctx, ev)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSignature):
		return "signature"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrConfiguration):
		return "config"
	default:
		return "other"
	}
}

// Classify is the pure mapping from a verified provider notification to the
// normalized lifecycle event. Unknown provider types are accepted as
// Unclassified so new event types never bounce.
func Classify(n *adapter.Notification) *model.LifecycleEvent {
	t := model.EventUnclassified
	switch n.Type {
	case "checkout.session.completed":
		t = model.EventPlanActivated
	case "invoice.payment_succeeded":
		t = model.EventChargeSucceeded
	case "invoice.payment_failed":
		t = model.EventChargeFailed
	case "customer.subscription.deleted":
		t = model.EventPlanEnded
	}
	return &model.LifecycleEvent{
		EventID:      n.ID,
		Type:         t,
		ProviderType: n.Type,
		PlanID:       n.PlanID,
		OccurredAt:   n.OccurredAt,
		AmountMinor:  n.AmountMinor,
		Currency:     n.Currency,
		Metadata:     n.Metadata,
		Raw:          n.Raw,
	}
}
