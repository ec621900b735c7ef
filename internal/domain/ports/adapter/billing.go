package adapter

import (
	"context"
	"time"

	"stripe-installments/internal/domain/model"
)

// CheckoutSpec describes the checkout session to create for a schedule.
// Metadata must carry enough context (total, cycles, per-cycle amount) for
// downstream reconciliation without a database lookup.
type CheckoutSpec struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	// CancelAt is the auto-termination instruction. Providers that cannot
	// attach it before checkout completion record it in metadata and arm it
	// on activation via ScheduleTermination.
	CancelAt time.Time
}

// CancellationState is the provider's authoritative view after a cancellation
// request. Never locally asserted.
type CancellationState struct {
	PlanID            string
	Canceled          bool
	CancelAtPeriodEnd bool
	EffectiveAt       time.Time
}

// BillingGateway is the hex port for the payment provider.
type BillingGateway interface {
	Name() string

	// CreateRecurringPrice registers a priced monthly billing unit and returns
	// its provider id. Product plus price is one logical operation here even
	// if the provider needs two calls.
	CreateRecurringPrice(ctx context.Context, amountMinor int64, currency string, intervalMonths int, description string) (priceID string, err error)

	// CreateCheckoutSession opens a provider-hosted redirect flow for a
	// recurring plan. The returned handle's PlanID may be empty until the
	// provider assigns one on completion.
	CreateCheckoutSession(ctx context.Context, spec CheckoutSpec) (*model.PlanHandle, error)

	// UpdateCancellation instructs the provider to stop billing, either at
	// period end or immediately. Idempotent: repeating on an already-canceled
	// plan returns the current state without error.
	UpdateCancellation(ctx context.Context, planID string, atPeriodEnd bool) (*CancellationState, error)

	// ScheduleTermination arms the auto-termination timestamp on an active
	// plan so billing stops without a later cancellation call.
	ScheduleTermination(ctx context.Context, planID string, at time.Time) error

	// VerifyNotification authenticates a raw webhook payload against the
	// shared secret and parses it. Fails closed: domain.ErrSignature on any
	// mismatch before the payload is looked at, domain.ErrParse for a signed
	// but malformed body.
	VerifyNotification(rawBody []byte, signatureHeader, secret string) (*Notification, error)
}

// Notification is the provider event after signature verification, before
// lifecycle classification.
type Notification struct {
	ID          string
	Type        string // provider event type string, e.g. "invoice.payment_succeeded"
	PlanID      string // subscription id when the payload carries one
	OccurredAt  time.Time
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
	Raw         []byte
}
