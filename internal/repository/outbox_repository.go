package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
	"github.com/google/uuid"
)

type OutboxPostgresRepository struct {
	base.Repository
}

func NewOutboxPostgresRepository(q base.Querier) *OutboxPostgresRepository {
	return &OutboxPostgresRepository{Repository: base.NewRepository(q)}
}

// Insert stamps the event with clock_timestamp() so events written by one transaction
// keep their write order; seq breaks the remaining ties.
func (r *OutboxPostgresRepository) Insert(ctx context.Context, event model.OutboxEvent) error {
	const query = `
INSERT INTO outbox_events (
	id,
	event_type,
	payload,
	created_at
) VALUES ($1, $2, $3, clock_timestamp())
`

	if _, err := r.Q().Exec(ctx, query, event.ID, event.EventType, []byte(event.Payload)); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *OutboxPostgresRepository) ClaimUnpublished(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	const query = `
UPDATE outbox_events
SET claimed_until = clock_timestamp() + make_interval(secs => $2)
WHERE id IN (
	SELECT id
	FROM outbox_events
	WHERE published_at IS NULL
	  AND (claimed_until IS NULL OR claimed_until < clock_timestamp())
	ORDER BY created_at, seq
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, event_type, payload, created_at, seq
`

	rows, err := r.Q().Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []*model.OutboxEvent
	for rows.Next() {
		var (
			event   model.OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&event.ID, &event.EventType, &payload, &event.CreatedAt, &event.Seq); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		event.Payload = payload
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}

	// RETURNING does not keep the order of the subquery
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].Seq < events[j].Seq
	})
	return events, nil
}

func (r *OutboxPostgresRepository) ReleaseClaims(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	const query = `
UPDATE outbox_events
SET claimed_until = NULL
WHERE id = ANY($1) AND published_at IS NULL
`

	if _, err := r.Q().Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("release outbox claims: %w", err)
	}
	return nil
}

func (r *OutboxPostgresRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE outbox_events SET published_at = clock_timestamp(), claimed_until = NULL WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
