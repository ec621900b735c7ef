//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// MockBillingGateway records calls and lets each operation be overridden per
// test via function hooks.
type MockBillingGateway struct {
	CreatePriceFunc     func(ctx context.Context, amountMinor int64, currency string, intervalMonths int, description string) (string, error)
	CreateSessionFunc   func(ctx context.Context, spec adapter.CheckoutSpec) (*model.PlanHandle, error)
	UpdateCancelFunc    func(ctx context.Context, planID string, atPeriodEnd bool) (*adapter.CancellationState, error)
	ScheduleTermFunc    func(ctx context.Context, planID string, at time.Time) error
	VerifyFunc          func(rawBody []byte, signatureHeader, secret string) (*adapter.Notification, error)
	PriceCalls          int
	SessionCalls        int
	CancelCalls         int
	ScheduleCalls       int
	VerifyCalls         int
	LastSessionSpec     adapter.CheckoutSpec
	LastScheduledPlanID string
	LastScheduledAt     time.Time
}

func (m *MockBillingGateway) Name() string { return "mock" }

func (m *MockBillingGateway) CreateRecurringPrice(ctx context.Context, amountMinor int64, currency string, intervalMonths int, description string) (string, error) {
	m.PriceCalls++
	if m.CreatePriceFunc != nil {
		return m.CreatePriceFunc(ctx, amountMinor, currency, intervalMonths, description)
	}
	return "price_mock", nil
}

func (m *MockBillingGateway) CreateCheckoutSession(ctx context.Context, spec adapter.CheckoutSpec) (*model.PlanHandle, error) {
	m.SessionCalls++
	m.LastSessionSpec = spec
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, spec)
	}
	return &model.PlanHandle{SessionID: "cs_mock", CheckoutURL: "https://checkout.example/cs_mock"}, nil
}

func (m *MockBillingGateway) UpdateCancellation(ctx context.Context, planID string, atPeriodEnd bool) (*adapter.CancellationState, error) {
	m.CancelCalls++
	if m.UpdateCancelFunc != nil {
		return m.UpdateCancelFunc(ctx, planID, atPeriodEnd)
	}
	return &adapter.CancellationState{PlanID: planID, Canceled: true, CancelAtPeriodEnd: atPeriodEnd}, nil
}

func (m *MockBillingGateway) ScheduleTermination(ctx context.Context, planID string, at time.Time) error {
	m.ScheduleCalls++
	m.LastScheduledPlanID = planID
	m.LastScheduledAt = at
	if m.ScheduleTermFunc != nil {
		return m.ScheduleTermFunc(ctx, planID, at)
	}
	return nil
}

func (m *MockBillingGateway) VerifyNotification(rawBody []byte, signatureHeader, secret string) (*adapter.Notification, error) {
	m.VerifyCalls++
	if m.VerifyFunc != nil {
		return m.VerifyFunc(rawBody, signatureHeader, secret)
	}
	return &adapter.Notification{ID: "evt_mock", Type: "unknown.event", Raw: rawBody}, nil
}

// MockEventStore is an in-memory idempotency table.
type MockEventStore struct {
	mu       sync.Mutex
	seen     map[string]bool
	MarkErr  error
	MarkedID []string
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{seen: map[string]bool{}}
}

func (m *MockEventStore) MarkProcessed(ctx context.Context, ev *model.LifecycleEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return false, m.MarkErr
	}
	m.MarkedID = append(m.MarkedID, ev.EventID)
	if m.seen[ev.EventID] {
		return false, nil
	}
	m.seen[ev.EventID] = true
	return true, nil
}

// MockHooks counts invocations per lifecycle type.
type MockHooks struct {
	Activated    int
	Succeeded    int
	Failed       int
	Ended        int
	Other        int
	ActivatedErr error
}

func (m *MockHooks) PlanActivated(ctx context.Context, ev *model.LifecycleEvent) error {
	m.Activated++
	return m.ActivatedErr
}
func (m *MockHooks) ChargeSucceeded(ctx context.Context, ev *model.LifecycleEvent) error {
	m.Succeeded++
	return nil
}
func (m *MockHooks) ChargeFailed(ctx context.Context, ev *model.LifecycleEvent) error {
	m.Failed++
	return nil
}
func (m *MockHooks) PlanEnded(ctx context.Context, ev *model.LifecycleEvent) error {
	m.Ended++
	return nil
}
func (m *MockHooks) Unclassified(ctx context.Context, ev *model.LifecycleEvent) error {
	m.Other++
	return nil
}
