package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate")
	ErrLockTimeout      = errors.New("lock timeout")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	// GetForUpdate locks the slot row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*model.Slot, error)
	IncrementEnrollment(ctx context.Context, id int64) (*model.Slot, error)
	DecrementEnrollment(ctx context.Context, id int64) (*model.Slot, error)
	UpdateStatus(ctx context.Context, id int64, status model.SlotStatus) error
	ListOpen(ctx context.Context, schoolID int64, from, to time.Time) ([]*model.Slot, error)
	// LockDueForCompletion locks every open or full slot dated before today, skipping
	// rows another transaction holds.
	LockDueForCompletion(ctx context.Context, today time.Time, limit int) ([]*model.Slot, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Enrollment, error)
	ListBookedByTeacher(ctx context.Context, teacherID int64) ([]*model.BookedSlot, error)
	ListBookedBySlot(ctx context.Context, slotID int64) ([]*model.Enrollment, error)
	UpdateStatus(ctx context.Context, id int64, status model.EnrollmentStatus) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByEnrollmentID(ctx context.Context, enrollmentID int64) (*model.Session, error)
	UpdateStatusByEnrollment(ctx context.Context, enrollmentID int64, status model.SessionStatus) (*model.Session, error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, event model.OutboxEvent) error
	// ClaimUnpublished leases up to limit pending events, oldest first. Claimed events are
	// skipped by other dispatchers until the lease runs out or the claim is released.
	ClaimUnpublished(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
	ReleaseClaims(ctx context.Context, ids []uuid.UUID) error
	MarkPublished(ctx context.Context, id uuid.UUID) error
}

// TxRepositories are bound to a single transaction.
type TxRepositories struct {
	Slots       SlotRepository
	Enrollments EnrollmentRepository
	Sessions    SessionRepository
	Outbox      OutboxRepository
}

// TxManager runs fn inside a transaction. A nil return commits, anything else rolls
// back and is returned to the caller.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
