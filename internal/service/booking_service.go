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

type BookingService struct {
	txManager repository.TxManager
	validator *Validator
	projector *Projector
	location  *time.Location
	clock     func() time.Time
	logger    *zap.Logger
}

func NewBookingService(
	txManager repository.TxManager,
	validator *Validator,
	projector *Projector,
	location *time.Location,
	logger *zap.Logger,
) *BookingService {
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		txManager: txManager,
		validator: validator,
		projector: projector,
		location:  location,
		clock:     time.Now,
		logger:    logger,
	}
}

// BookingResult is what a successful booking committed
type BookingResult struct {
	Enrollment *model.Enrollment
	Session    *model.Session
	Slot       *model.Slot
}

// BookSlot reserves one seat of a slot for a teacher. Every refusal is a *Rejection and
// leaves the store untouched.
func (s *BookingService) BookSlot(ctx context.Context, teacherID, slotID int64) (*BookingResult, error) {
	now := s.clock()
	candidate := &Candidate{
		TeacherID: teacherID,
		SlotID:    slotID,
		Today:     model.DateOf(now, s.location),
	}

	var result *BookingResult
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		// Single-active-booking does not need the slot, so it runs before contending for the lock
		bookings, err := repos.Enrollments.ListBookedByTeacher(ctx, teacherID)
		if err != nil {
			return fmt.Errorf("list teacher bookings: %w", err)
		}
		candidate.Bookings = bookings
		if decision := s.validator.PreLock(candidate); !decision.Allowed {
			return s.deny(decision, candidate)
		}

		slot, err := repos.Slots.GetForUpdate(ctx, slotID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get slot for update: %w", err)
		}
		candidate.Slot = slot

		if slot != nil {
			// re-read history now that other bookers of this slot are blocked
			bookings, err = repos.Enrollments.ListBookedByTeacher(ctx, teacherID)
			if err != nil {
				return fmt.Errorf("list teacher bookings: %w", err)
			}
			candidate.Bookings = bookings
		}

		if decision := s.validator.Locked(candidate); !decision.Allowed {
			return s.deny(decision, candidate)
		}

		enrollment := &model.Enrollment{
			SlotID:    slotID,
			TeacherID: teacherID,
			Status:    model.EnrollmentStatusBooked,
			BookedAt:  now,
		}
		if err := repos.Enrollments.Create(ctx, enrollment); err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}

		session, updated, err := s.projector.Project(ctx, repos, enrollment)
		if err != nil {
			return fmt.Errorf("project enrollment %d: %w", enrollment.ID, err)
		}

		result = &BookingResult{Enrollment: enrollment, Session: session, Slot: updated}
		return nil
	})
	if err != nil {
		rejection := classify(err)
		s.logFailure("Booking rejected", rejection,
			zap.Int64("teacher_id", teacherID),
			zap.Int64("slot_id", slotID),
		)
		return nil, rejection
	}

	s.logger.Info("Slot booked",
		zap.Int64("enrollment_id", result.Enrollment.ID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("slot_id", slotID),
		zap.String("session_id", result.Session.ID.String()),
		zap.Int("capacity_enrolled", result.Slot.CapacityEnrolled),
		zap.String("slot_status", string(result.Slot.Status)),
	)

	return result, nil
}

// CancelEnrollment cancels a teacher's own booked enrollment and frees its seat
func (s *BookingService) CancelEnrollment(ctx context.Context, teacherID, enrollmentID int64) (*model.Enrollment, error) {
	var cancelled *model.Enrollment
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		enrollment, err := repos.Enrollments.GetByID(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("get enrollment: %w", err)
		}
		if enrollment.TeacherID != teacherID {
			return ErrNotEnrollmentOwner
		}

		slot, err := repos.Slots.GetForUpdate(ctx, enrollment.SlotID)
		if err != nil {
			return fmt.Errorf("get slot for update: %w", err)
		}

		// the status may have moved while we waited for the lock
		enrollment, err = repos.Enrollments.GetByID(ctx, enrollmentID)
		if err != nil {
			return fmt.Errorf("get enrollment: %w", err)
		}
		if enrollment.Status != model.EnrollmentStatusBooked || slot.Status.IsTerminal() {
			return ErrEnrollmentNotActive
		}

		if err := repos.Enrollments.UpdateStatus(ctx, enrollment.ID, model.EnrollmentStatusCancelled); err != nil {
			return fmt.Errorf("update enrollment status: %w", err)
		}
		enrollment.Status = model.EnrollmentStatusCancelled

		updated, err := s.releaseSeat(ctx, repos, enrollment)
		if err != nil {
			return err
		}
		enrollment.Slot = updated
		cancelled = enrollment
		return nil
	})
	if err != nil {
		rejection := classify(err)
		s.logFailure("Enrollment cancellation rejected", rejection,
			zap.Int64("teacher_id", teacherID),
			zap.Int64("enrollment_id", enrollmentID),
		)
		return nil, rejection
	}

	s.logger.Info("Enrollment cancelled",
		zap.Int64("enrollment_id", enrollmentID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("slot_id", cancelled.SlotID),
	)

	return cancelled, nil
}

func (s *BookingService) releaseSeat(ctx context.Context, repos repository.TxRepositories, enrollment *model.Enrollment) (*model.Slot, error) {
	_, slot, err := s.projector.Release(ctx, repos, enrollment)
	if err != nil {
		return nil, fmt.Errorf("release enrollment %d: %w", enrollment.ID, err)
	}
	return slot, nil
}

// ListTeacherEnrollments returns all enrollments of a teacher, newest slot first
func (s *BookingService) ListTeacherEnrollments(ctx context.Context, teacherID int64) ([]*model.Enrollment, error) {
	var enrollments []*model.Enrollment
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		enrollments, err = repos.Enrollments.ListByTeacher(ctx, teacherID)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return enrollments, nil
}

func (s *BookingService) deny(decision Decision, c *Candidate) error {
	s.logger.Debug("Eligibility rule denied booking",
		zap.String("rule", decision.Rule),
		zap.String("reason", string(decision.Reason)),
		zap.Int64("teacher_id", c.TeacherID),
		zap.Int64("slot_id", c.SlotID),
	)
	return Reject(decision.Reason)
}

func (s *BookingService) logFailure(msg string, rejection *Rejection, fields ...zap.Field) {
	fields = append(fields, zap.String("reason", string(rejection.Reason)))
	if rejection.Reason == ReasonTransactionFailed {
		s.logger.Error(msg, append(fields, zap.Error(rejection.Err))...)
		return
	}
	s.logger.Info(msg, fields...)
}

// classify turns whatever came out of a transaction into a rejection
func classify(err error) *Rejection {
	if rejection, ok := AsRejection(err); ok {
		return rejection
	}
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateBooking.wrap(err)
	case errors.Is(err, repository.ErrCapacityExceeded):
		return ErrSlotFull.wrap(err)
	case errors.Is(err, repository.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrBusy.wrap(err)
	}
	return ErrTransactionFailed.wrap(err)
}
