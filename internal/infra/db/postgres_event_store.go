package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"stripe-installments/internal/domain/model"
	"stripe-installments/internal/domain/ports/repository"
)

var _ repository.EventStore = (*PostgresEventStore)(nil)

// PostgresEventStore is the durable idempotency table plus audit log for
// processed webhook notifications.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func NewPgxPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processed_events (
  id           TEXT PRIMARY KEY,
  event_type   TEXT NOT NULL,
  plan_id      TEXT,
  amount_minor BIGINT NOT NULL DEFAULT 0,
  occurred_at  TIMESTAMPTZ,
  received_at  TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the processed_events table. Call once at bootstrap.
func (s *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres EnsureSchema: %w", err)
	}
	return nil
}

// MarkProcessed inserts the event row; a unique violation on the primary key
// means another delivery of the same event already won.
func (s *PostgresEventStore) MarkProcessed(ctx context.Context, ev *model.LifecycleEvent) (bool, error) {
	const sql = `
INSERT INTO processed_events (id, event_type, plan_id, amount_minor, occurred_at, received_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := s.pool.Exec(ctx, sql,
		ev.EventID,
		string(ev.Type),
		ev.PlanID,
		ev.AmountMinor,
		ev.OccurredAt,
		time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return false, nil
		}
		return false, fmt.Errorf("postgres MarkProcessed: %w", err)
	}
	return true, nil
}
