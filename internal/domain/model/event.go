package model

import "time"

// EventType is the normalized lifecycle classification of a provider
// notification.
type EventType string

const (
	EventPlanActivated   EventType = "plan_activated"
	EventChargeSucceeded EventType = "charge_succeeded"
	EventChargeFailed    EventType = "charge_failed"
	EventPlanEnded       EventType = "plan_ended"
	// EventUnclassified covers provider event types this service does not
	// react to. They are acknowledged, never rejected.
	EventUnclassified EventType = "unclassified"
)

// LifecycleEvent is the normalized view of a single provider notification.
// Created once per inbound notification and never mutated.
type LifecycleEvent struct {
	EventID      string
	Type         EventType
	ProviderType string // provider's own event type string, kept for audit
	PlanID       string
	OccurredAt   time.Time
	AmountMinor  int64  // paid amount for charge events, 0 otherwise
	Currency     string
	Metadata     map[string]string
	Raw          []byte // opaque original payload
}
