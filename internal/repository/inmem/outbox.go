package inmem

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/google/uuid"
)

type outboxRepository struct {
	tx *tx
}

func (r *outboxRepository) Insert(_ context.Context, event model.OutboxEvent) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	db.outboxSeq++
	event.Seq = db.outboxSeq
	event.CreatedAt = db.now()
	r.tx.outboxNew = append(r.tx.outboxNew, &outboxRow{event: event})
	return nil
}

// ClaimUnpublished leases up to limit pending events, oldest first. Events claimed by a
// transaction that has not committed yet are not visible here, so a single dispatcher
// should drain the in-memory outbox.
func (r *outboxRepository) ClaimUnpublished(_ context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	var out []*model.OutboxEvent
	for _, row := range r.tx.outboxRows() {
		if len(out) == limit {
			break
		}
		if row.event.PublishedAt != nil || row.claimedUntil.After(now) {
			continue
		}
		claimed := r.tx.touchOutbox(row)
		claimed.claimedUntil = now.Add(lease)
		event := claimed.event
		out = append(out, &event)
	}
	return out, nil
}

func (r *outboxRepository) ReleaseClaims(_ context.Context, ids []uuid.UUID) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	release := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		release[id] = true
	}
	for _, row := range r.tx.outboxRows() {
		if release[row.event.ID] && row.event.PublishedAt == nil {
			r.tx.touchOutbox(row).claimedUntil = time.Time{}
		}
	}
	return nil
}

func (r *outboxRepository) MarkPublished(_ context.Context, id uuid.UUID) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, row := range r.tx.outboxRows() {
		if row.event.ID != id {
			continue
		}
		now := db.now()
		published := r.tx.touchOutbox(row)
		published.event.PublishedAt = &now
		published.claimedUntil = time.Time{}
		return nil
	}
	return repository.ErrNotFound
}
