package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, enrollment_id, slot_id, teacher_id, school_id, date, start_time, end_time, status, created_at, updated_at`

type SessionPostgresRepository struct {
	base.Repository
}

func NewSessionPostgresRepository(q base.Querier) *SessionPostgresRepository {
	return &SessionPostgresRepository{Repository: base.NewRepository(q)}
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s          model.Session
		date       pgtype.Date
		start, end pgtype.Time
	)
	err := row.Scan(
		&s.ID,
		&s.EnrollmentID,
		&s.SlotID,
		&s.TeacherID,
		&s.SchoolID,
		&date,
		&start,
		&end,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Date = fromPgDate(date)
	s.StartTime = fromPgTime(start)
	s.EndTime = fromPgTime(end)
	return &s, nil
}

// Create materializes a session. enrollment_id is unique, so a second projection of the
// same enrollment fails with ErrDuplicate.
func (r *SessionPostgresRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, enrollment_id, slot_id, teacher_id, school_id, date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.Q().QueryRow(
		ctx, query,
		session.ID,
		session.EnrollmentID,
		session.SlotID,
		session.TeacherID,
		session.SchoolID,
		toPgDate(session.Date),
		toPgTime(session.StartTime),
		toPgTime(session.EndTime),
		session.Status,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create session: %w", ErrDuplicate)
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *SessionPostgresRepository) GetByEnrollmentID(ctx context.Context, enrollmentID int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE enrollment_id = $1`

	s, err := scanSession(r.Q().QueryRow(ctx, query, enrollmentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session by enrollment: %w", err)
	}

	return s, nil
}

func (r *SessionPostgresRepository) UpdateStatusByEnrollment(ctx context.Context, enrollmentID int64, status model.SessionStatus) (*model.Session, error) {
	query := `
		UPDATE sessions
		SET status = $1, updated_at = now()
		WHERE enrollment_id = $2
		RETURNING ` + sessionColumns

	s, err := scanSession(r.Q().QueryRow(ctx, query, status, enrollmentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update session status: %w", err)
	}

	return s, nil
}
