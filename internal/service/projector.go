package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/google/uuid"
)

// Projector owns the side effects of an enrollment changing state: the slot counters and
// status, the derived session and the outbox event. It always runs inside the caller's
// transaction.
type Projector struct{}

func NewProjector() *Projector {
	return &Projector{}
}

// Project applies a freshly created booked enrollment. The caller invokes it at most once
// per enrollment; a repeat fails on the session's unique enrollment and rolls back.
func (p *Projector) Project(ctx context.Context, repos repository.TxRepositories, enrollment *model.Enrollment) (*model.Session, *model.Slot, error) {
	slot, err := repos.Slots.IncrementEnrollment(ctx, enrollment.SlotID)
	if err != nil {
		return nil, nil, fmt.Errorf("increment enrollment: %w", err)
	}

	session := &model.Session{
		ID:           uuid.New(),
		EnrollmentID: enrollment.ID,
		SlotID:       slot.ID,
		TeacherID:    enrollment.TeacherID,
		SchoolID:     slot.SchoolID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Status:       model.SessionStatusFor(enrollment.Status),
	}
	if err := repos.Sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("materialize session: %w", err)
	}

	if err := p.emit(ctx, repos, model.EventSessionMaterialized, session); err != nil {
		return nil, nil, err
	}

	return session, slot, nil
}

// Release reverses a booked enrollment that was just cancelled: one seat goes back to the
// slot and the session follows the enrollment.
func (p *Projector) Release(ctx context.Context, repos repository.TxRepositories, enrollment *model.Enrollment) (*model.Session, *model.Slot, error) {
	slot, err := repos.Slots.DecrementEnrollment(ctx, enrollment.SlotID)
	if err != nil {
		return nil, nil, fmt.Errorf("decrement enrollment: %w", err)
	}

	session, err := p.follow(ctx, repos, enrollment)
	if err != nil {
		return nil, nil, err
	}

	return session, slot, nil
}

// Settle moves the session of an enrollment that reached a terminal status without
// touching slot counters (slot cancelled or completed as a whole).
func (p *Projector) Settle(ctx context.Context, repos repository.TxRepositories, enrollment *model.Enrollment) (*model.Session, error) {
	return p.follow(ctx, repos, enrollment)
}

func (p *Projector) follow(ctx context.Context, repos repository.TxRepositories, enrollment *model.Enrollment) (*model.Session, error) {
	status := model.SessionStatusFor(enrollment.Status)
	session, err := repos.Sessions.UpdateStatusByEnrollment(ctx, enrollment.ID, status)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	eventType := model.EventSessionCancelled
	if status == model.SessionStatusCompleted {
		eventType = model.EventSessionCompleted
	}
	if err := p.emit(ctx, repos, eventType, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (p *Projector) emit(ctx context.Context, repos repository.TxRepositories, eventType string, session *model.Session) error {
	event, err := model.NewSessionEvent(eventType, session)
	if err != nil {
		return err
	}
	if err := repos.Outbox.Insert(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}
