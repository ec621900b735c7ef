package repository

import (
	"context"

	"stripe-installments/internal/domain/model"
)

// EventStore is the durable idempotency table keyed by provider event id.
// The provider delivers at least once; this store makes effect application
// at most once.
type EventStore interface {
	// MarkProcessed records the event and reports whether this is the first
	// time its id has been seen. Implementations must be safe under
	// concurrent redelivery of the same id.
	MarkProcessed(ctx context.Context, ev *model.LifecycleEvent) (first bool, err error)
}
