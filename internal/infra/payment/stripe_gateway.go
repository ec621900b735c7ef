package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"stripe-installments/internal/domain"
	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/adapter"
	"stripe-installments/internal/infra/metrics"
)

// Compile-time check
var _ adapter.BillingGateway = (*StripeGateway)(nil)

// StripeGateway implements the billing port against the Stripe API.
// The client is constructed once at process start; an empty key is tolerated
// until the first call so that a misconfigured deployment fails with a
// configuration error instead of crashing at boot.
type StripeGateway struct {
	key string
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{key: secretKey, api: api}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) ready() error {
	if g.key == "" {
		return fmt.Errorf("stripe secret key missing: %w", domain.ErrConfiguration)
	}
	return nil
}

// mapErr preserves Stripe's own message and code for caller diagnostics.
func mapErr(op string, err error) error {
	metrics.IncProviderCall(op, false)
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return &domain.ProviderError{Op: op, Code: string(sErr.Code), Message: sErr.Msg}
	}
	return &domain.ProviderError{Op: op, Message: err.Error()}
}

// CreateRecurringPrice registers a product and a monthly recurring price for
// it. The two Stripe calls are one logical operation; if the price call fails
// the orphaned product is not deleted, only surfaced to the caller.
func (g *StripeGateway) CreateRecurringPrice(ctx context.Context, amountMinor int64, currency string, intervalMonths int, description string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	prod, err := g.api.Products.New(&stripe.ProductParams{
		Params:      stripe.Params{Context: ctx},
		Name:        stripe.String(description),
		Description: stripe.String(description),
	})
	if err != nil {
		return "", mapErr("create_product", err)
	}

	price, err := g.api.Prices.New(&stripe.PriceParams{
		Params:     stripe.Params{Context: ctx},
		Product:    stripe.String(prod.ID),
		Currency:   stripe.String(currency),
		UnitAmount: stripe.Int64(amountMinor),
		Recurring: &stripe.PriceRecurringParams{
			Interval:      stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			IntervalCount: stripe.Int64(int64(intervalMonths)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("product %s left without price: %w", prod.ID, mapErr("create_price", err))
	}

	metrics.IncProviderCall("create_price", true)
	return price.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, spec adapter.CheckoutSpec) (*model.PlanHandle, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(spec.SuccessURL),
		CancelURL:  stripe.String(spec.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(spec.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: spec.Metadata,
		},
	}
	for k, v := range spec.Metadata {
		params.AddMetadata(k, v)
	}
	if !spec.CancelAt.IsZero() {
		// Stripe cannot attach cancel_at before checkout completes, so the
		// instruction rides along in metadata and is armed on activation.
		armAt := fmt.Sprintf("%d", spec.CancelAt.Unix())
		params.AddMetadata(metaCancelAt, armAt)
		if params.SubscriptionData.Metadata == nil {
			params.SubscriptionData.Metadata = map[string]string{}
		}
		params.SubscriptionData.Metadata[metaCancelAt] = armAt
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapErr("create_checkout_session", err)
	}
	metrics.IncProviderCall("create_checkout_session", true)

	handle := &model.PlanHandle{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}
	if sess.Subscription != nil {
		handle.PlanID = sess.Subscription.ID
	}
	return handle, nil
}

// metaCancelAt is the metadata key carrying the deferred auto-termination
// timestamp (unix seconds).
const metaCancelAt = "cancel_at_unix"

func (g *StripeGateway) ScheduleTermination(ctx context.Context, planID string, at time.Time) error {
	if err := g.ready(); err != nil {
		return err
	}
	_, err := g.api.Subscriptions.Update(planID, &stripe.SubscriptionParams{
		Params:   stripe.Params{Context: ctx},
		CancelAt: stripe.Int64(at.Unix()),
	})
	if err != nil {
		return mapErr("schedule_termination", err)
	}
	metrics.IncProviderCall("schedule_termination", true)
	return nil
}

// UpdateCancellation reads the subscription first and only issues the update
// the provider still needs, which makes repeated cancellations return the
// current authoritative state instead of erroring.
func (g *StripeGateway) UpdateCancellation(ctx context.Context, planID string, atPeriodEnd bool) (*adapter.CancellationState, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	sub, err := g.api.Subscriptions.Get(planID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, mapErr("get_subscription", err)
	}

	if sub.Status == stripe.SubscriptionStatusCanceled {
		return cancellationState(sub), nil
	}

	if atPeriodEnd {
		if !sub.CancelAtPeriodEnd {
			sub, err = g.api.Subscriptions.Update(planID, &stripe.SubscriptionParams{
				Params:            stripe.Params{Context: ctx},
				CancelAtPeriodEnd: stripe.Bool(true),
			})
			if err != nil {
				return nil, mapErr("update_cancellation", err)
			}
		}
	} else {
		sub, err = g.api.Subscriptions.Cancel(planID, &stripe.SubscriptionCancelParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			return nil, mapErr("cancel_subscription", err)
		}
	}

	metrics.IncProviderCall("update_cancellation", true)
	return cancellationState(sub), nil
}

func cancellationState(sub *stripe.Subscription) *adapter.CancellationState {
	st := &adapter.CancellationState{
		PlanID:            sub.ID,
		Canceled:          sub.Status == stripe.SubscriptionStatusCanceled || sub.CancelAtPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	switch {
	case sub.CanceledAt > 0 && sub.Status == stripe.SubscriptionStatusCanceled:
		st.EffectiveAt = time.Unix(sub.CanceledAt, 0).UTC()
	case sub.CancelAtPeriodEnd && sub.CurrentPeriodEnd > 0:
		st.EffectiveAt = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	case sub.CancelAt > 0:
		st.EffectiveAt = time.Unix(sub.CancelAt, 0).UTC()
	}
	return st
}

// VerifyNotification authenticates the raw payload with Stripe's signing
// scheme (timestamp + HMAC-SHA256 over the body) before anything is parsed.
func (g *StripeGateway) VerifyNotification(rawBody []byte, signatureHeader, secret string) (*adapter.Notification, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret missing: %w", domain.ErrConfiguration)
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("missing signature header: %w", domain.ErrSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureErr(err) {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrSignature)
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrParse)
	}

	n := &adapter.Notification{
		ID:         ev.ID,
		Type:       string(ev.Type),
		OccurredAt: time.Unix(ev.Created, 0).UTC(),
		Raw:        rawBody,
	}
	if err := extractObject(&ev, n); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrParse)
	}
	return n, nil
}

func isSignatureErr(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// extractObject pulls the plan id, amount and metadata out of the event
// payload. The shapes differ per object family, so each is unmarshalled into
// its typed Stripe struct.
func extractObject(ev *stripe.Event, n *adapter.Notification) error {
	switch {
	case n.Type == "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return err
		}
		if s.Subscription != nil {
			n.PlanID = s.Subscription.ID
		}
		n.Metadata = s.Metadata
		n.Currency = string(s.Currency)
	case strings.HasPrefix(n.Type, "invoice."):
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Subscription != nil {
			n.PlanID = inv.Subscription.ID
		}
		n.AmountMinor = inv.AmountPaid
		n.Currency = string(inv.Currency)
	case strings.HasPrefix(n.Type, "customer.subscription."):
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return err
		}
		n.PlanID = sub.ID
		n.Metadata = sub.Metadata
	}
	return nil
}
