package redis

import (
	"context"
	"fmt"
	"time"

	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/repository"
)

var _ repository.EventStore = (*EventStore)(nil)

// EventStore records processed webhook event ids with SET NX, so concurrent
// redelivery of the same id resolves to exactly one winner. Keys expire after
// ttl; Stripe stops retrying well before that.
type EventStore struct {
	cli *Client
	ttl time.Duration
}

func NewEventStore(cli *Client, ttl time.Duration) *EventStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &EventStore{cli: cli, ttl: ttl}
}

func (s *EventStore) MarkProcessed(ctx context.Context, ev *model.LifecycleEvent) (bool, error) {
	key := "webhook:event:" + ev.EventID
	first, err := s.cli.SetNX(ctx, key, string(ev.Type), s.ttl)
	if err != nil {
		return false, fmt.Errorf("redis MarkProcessed: %w", err)
	}
	return first, nil
}
