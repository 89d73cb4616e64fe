package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/notify"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultOutboxBatchSize = 50
	defaultClaimLease      = 5 * time.Minute
	deliveryAttempts       = 3
	deliveryBaseBackoff    = 200 * time.Millisecond
)

// OutboxDispatcher delivers pending session events to a Notifier and marks them published
type OutboxDispatcher struct {
	txManager   repository.TxManager
	notifier    notify.Notifier
	batchSize   int
	claimLease  time.Duration
	baseBackoff time.Duration
	logger      *zap.Logger
}

func NewOutboxDispatcher(txManager repository.TxManager, notifier notify.Notifier, logger *zap.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		txManager:   txManager,
		notifier:    notifier,
		batchSize:   defaultOutboxBatchSize,
		claimLease:  defaultClaimLease,
		baseBackoff: deliveryBaseBackoff,
		logger:      logger,
	}
}

// DispatchPending delivers one batch in creation order. The batch is claimed in a short
// transaction and delivered with no transaction open; each delivered event is then marked
// published on its own. Delivery stops at the first event that still fails after retries
// and the rest of the batch is released for the next tick. An event whose delivery
// succeeded but could not be marked is sent again once its claim expires.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) (int, error) {
	var events []*model.OutboxEvent
	err := d.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		events, err = repos.Outbox.ClaimUnpublished(ctx, d.batchSize, d.claimLease)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("claim outbox events: %w", err)
	}

	delivered := 0
	for i, event := range events {
		if err := d.deliver(ctx, event); err != nil {
			d.logger.Warn("Failed to deliver outbox event",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			d.releaseClaims(ctx, events[i:])
			break
		}

		err := d.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
			return repos.Outbox.MarkPublished(ctx, event.ID)
		})
		if err != nil {
			d.releaseClaims(ctx, events[i+1:])
			return delivered, fmt.Errorf("mark event %s published: %w", event.ID, err)
		}
		delivered++
	}

	if delivered > 0 {
		d.logger.Debug("Outbox events delivered", zap.Int("count", delivered))
	}
	return delivered, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, event *model.OutboxEvent) error {
	backoff := retry.WithMaxRetries(deliveryAttempts-1, retry.NewExponential(d.baseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.notifier.Notify(ctx, event); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// releaseClaims hands undelivered events back; on failure they wait out the lease.
func (d *OutboxDispatcher) releaseClaims(ctx context.Context, events []*model.OutboxEvent) {
	if len(events) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}

	err := d.txManager.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, repos repository.TxRepositories) error {
		return repos.Outbox.ReleaseClaims(ctx, ids)
	})
	if err != nil {
		d.logger.Warn("Failed to release outbox claims", zap.Int("count", len(ids)), zap.Error(err))
	}
}
