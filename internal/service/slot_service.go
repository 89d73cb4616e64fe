package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"go.uber.org/zap"
)

const completionBatchSize = 100

type SlotService struct {
	txManager repository.TxManager
	projector *Projector
	location  *time.Location
	clock     func() time.Time
	logger    *zap.Logger
}

func NewSlotService(txManager repository.TxManager, projector *Projector, location *time.Location, logger *zap.Logger) *SlotService {
	if location == nil {
		location = time.UTC
	}
	return &SlotService{
		txManager: txManager,
		projector: projector,
		location:  location,
		clock:     time.Now,
		logger:    logger,
	}
}

func (s *SlotService) today() time.Time {
	return model.DateOf(s.clock(), s.location)
}

// CreateSlot opens a new slot for booking
func (s *SlotService) CreateSlot(ctx context.Context, schoolID int64, date time.Time, start, end model.TimeOfDay, capacity int) (*model.Slot, error) {
	date = model.DateOf(date, nil)
	switch {
	case schoolID <= 0, capacity <= 0:
		return nil, ErrInvalidSlot
	case !start.Valid(), !end.ValidEnd(), start >= end:
		return nil, ErrInvalidSlot
	case date.Before(s.today()):
		return nil, ErrSlotInPast
	}

	slot := &model.Slot{
		SchoolID:         schoolID,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		CapacityRequired: capacity,
		Status:           model.SlotStatusOpen,
	}
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		return repos.Slots.Create(ctx, slot)
	})
	if err != nil {
		s.logger.Error("Failed to create slot", zap.Int64("school_id", schoolID), zap.Error(err))
		return nil, classify(err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("school_id", schoolID),
		zap.String("date", date.Format(model.DateLayout)),
		zap.String("start", start.String()),
		zap.String("end", end.String()),
		zap.Int("capacity", capacity),
	)

	return slot, nil
}

// GetSlot returns a slot without locking it
func (s *SlotService) GetSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	var slot *model.Slot
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		slot, err = repos.Slots.GetByID(ctx, slotID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSlotNotFound
		}
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return slot, nil
}

// ListOpenSlots returns a school's bookable slots dated between from and to
func (s *SlotService) ListOpenSlots(ctx context.Context, schoolID int64, from, to time.Time) ([]*model.Slot, error) {
	from = model.DateOf(from, nil)
	to = model.DateOf(to, nil)
	if today := s.today(); from.Before(today) {
		from = today
	}

	var slots []*model.Slot
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		slots, err = repos.Slots.ListOpen(ctx, schoolID, from, to)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return slots, nil
}

// CancelSlot cancels a slot together with every booking on it
func (s *SlotService) CancelSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	var cancelled *model.Slot
	var affected int
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		slot, err := repos.Slots.GetForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("get slot for update: %w", err)
		}
		if slot.Status.IsTerminal() {
			return ErrSlotNotOpen
		}

		if err := repos.Slots.UpdateStatus(ctx, slotID, model.SlotStatusCancelled); err != nil {
			return fmt.Errorf("update slot status: %w", err)
		}
		slot.Status = model.SlotStatusCancelled

		affected, err = s.settleEnrollments(ctx, repos, slotID, model.EnrollmentStatusCancelled)
		if err != nil {
			return err
		}

		cancelled = slot
		return nil
	})
	if err != nil {
		rejection := classify(err)
		s.logger.Info("Slot cancellation rejected",
			zap.Int64("slot_id", slotID),
			zap.String("reason", string(rejection.Reason)),
			zap.Error(rejection.Err),
		)
		return nil, rejection
	}

	s.logger.Info("Slot cancelled",
		zap.Int64("slot_id", slotID),
		zap.Int("enrollments_cancelled", affected),
	)

	return cancelled, nil
}

// CompleteDueSlots marks every past open or full slot completed along with its booked
// enrollments and sessions. It returns how many slots were completed.
func (s *SlotService) CompleteDueSlots(ctx context.Context) (int, error) {
	today := s.today()
	total := 0

	for {
		var batch int
		err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
			slots, err := repos.Slots.LockDueForCompletion(ctx, today, completionBatchSize)
			if err != nil {
				return err
			}

			for _, slot := range slots {
				if err := repos.Slots.UpdateStatus(ctx, slot.ID, model.SlotStatusCompleted); err != nil {
					return fmt.Errorf("complete slot %d: %w", slot.ID, err)
				}
				if _, err := s.settleEnrollments(ctx, repos, slot.ID, model.EnrollmentStatusCompleted); err != nil {
					return err
				}
			}
			batch = len(slots)
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("complete due slots: %w", err)
		}

		total += batch
		if batch < completionBatchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("Completed past slots", zap.Int("slots", total))
	}
	return total, nil
}

func (s *SlotService) settleEnrollments(ctx context.Context, repos repository.TxRepositories, slotID int64, status model.EnrollmentStatus) (int, error) {
	enrollments, err := repos.Enrollments.ListBookedBySlot(ctx, slotID)
	if err != nil {
		return 0, fmt.Errorf("list booked enrollments: %w", err)
	}

	for _, enrollment := range enrollments {
		if err := repos.Enrollments.UpdateStatus(ctx, enrollment.ID, status); err != nil {
			return 0, fmt.Errorf("update enrollment %d: %w", enrollment.ID, err)
		}
		enrollment.Status = status
		if _, err := s.projector.Settle(ctx, repos, enrollment); err != nil {
			return 0, fmt.Errorf("settle enrollment %d: %w", enrollment.ID, err)
		}
	}

	return len(enrollments), nil
}
