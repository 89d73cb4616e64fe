package inmem

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

type sessionRepository struct {
	tx *tx
}

func (r *sessionRepository) Create(_ context.Context, session *model.Session) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := r.tx.session(session.EnrollmentID); ok {
		return fmt.Errorf("create session: %w", repository.ErrDuplicate)
	}

	now := db.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.tx.sessions[session.EnrollmentID] = copySession(session)
	return nil
}

func (r *sessionRepository) GetByEnrollmentID(_ context.Context, enrollmentID int64) (*model.Session, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := r.tx.session(enrollmentID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(s), nil
}

func (r *sessionRepository) UpdateStatusByEnrollment(_ context.Context, enrollmentID int64, status model.SessionStatus) (*model.Session, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	current, ok := r.tx.session(enrollmentID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := copySession(current)
	next.Status = status
	next.UpdatedAt = db.now()
	r.tx.sessions[enrollmentID] = next
	return copySession(next), nil
}
