package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgtype"
)

const enrollmentColumns = `id, slot_id, teacher_id, status, booked_at, updated_at`

type EnrollmentPostgresRepository struct {
	base.Repository
}

func NewEnrollmentPostgresRepository(q base.Querier) *EnrollmentPostgresRepository {
	return &EnrollmentPostgresRepository{Repository: base.NewRepository(q)}
}

func scanEnrollment(row rowScanner) (*model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(
		&e.ID,
		&e.SlotID,
		&e.TeacherID,
		&e.Status,
		&e.BookedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an enrollment. A second booked enrollment for the same slot and teacher
// hits the partial unique index and comes back as ErrDuplicate.
func (r *EnrollmentPostgresRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	query := `
		INSERT INTO enrollments (slot_id, teacher_id, status, booked_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at
	`

	err := r.Q().QueryRow(
		ctx, query,
		enrollment.SlotID,
		enrollment.TeacherID,
		enrollment.Status,
		enrollment.BookedAt,
	).Scan(&enrollment.ID, &enrollment.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create enrollment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	return nil
}

func (r *EnrollmentPostgresRepository) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	e, err := scanEnrollment(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment by id: %w", err)
	}

	return e, nil
}

// ListByTeacher returns every enrollment of the teacher with its slot attached
func (r *EnrollmentPostgresRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Enrollment, error) {
	query := `
		SELECT e.id, e.slot_id, e.teacher_id, e.status, e.booked_at, e.updated_at,
		       s.id, s.school_id, s.date, s.start_time, s.end_time,
		       s.capacity_required, s.capacity_enrolled, s.status, s.created_at, s.updated_at
		FROM enrollments e
		JOIN slots s ON s.id = e.slot_id
		WHERE e.teacher_id = $1
		ORDER BY s.date DESC, s.start_time DESC
	`

	rows, err := r.Q().Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by teacher: %w", err)
	}
	defer rows.Close()

	var enrollments []*model.Enrollment
	for rows.Next() {
		var (
			e          model.Enrollment
			slot       model.Slot
			date       pgtype.Date
			start, end pgtype.Time
		)
		err := rows.Scan(
			&e.ID, &e.SlotID, &e.TeacherID, &e.Status, &e.BookedAt, &e.UpdatedAt,
			&slot.ID, &slot.SchoolID, &date, &start, &end,
			&slot.CapacityRequired, &slot.CapacityEnrolled, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		slot.Date = fromPgDate(date)
		slot.StartTime = fromPgTime(start)
		slot.EndTime = fromPgTime(end)
		e.Slot = &slot
		enrollments = append(enrollments, &e)
	}

	return enrollments, rows.Err()
}

// ListBookedByTeacher returns the teacher's booked enrollments with their slot windows
func (r *EnrollmentPostgresRepository) ListBookedByTeacher(ctx context.Context, teacherID int64) ([]*model.BookedSlot, error) {
	query := `
		SELECT e.id, s.id, s.date, s.start_time, s.end_time, s.status
		FROM enrollments e
		JOIN slots s ON s.id = e.slot_id
		WHERE e.teacher_id = $1
		  AND e.status = 'booked'
		ORDER BY s.date, s.start_time
	`

	rows, err := r.Q().Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list booked slots by teacher: %w", err)
	}
	defer rows.Close()

	var booked []*model.BookedSlot
	for rows.Next() {
		var (
			b          model.BookedSlot
			date       pgtype.Date
			start, end pgtype.Time
		)
		if err := rows.Scan(&b.EnrollmentID, &b.SlotID, &date, &start, &end, &b.SlotStatus); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		b.Date = fromPgDate(date)
		b.StartTime = fromPgTime(start)
		b.EndTime = fromPgTime(end)
		booked = append(booked, &b)
	}

	return booked, rows.Err()
}

func (r *EnrollmentPostgresRepository) ListBookedBySlot(ctx context.Context, slotID int64) ([]*model.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE slot_id = $1 AND status = 'booked'
		ORDER BY booked_at
	`

	rows, err := r.Q().Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("list booked enrollments by slot: %w", err)
	}
	defer rows.Close()

	var enrollments []*model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func (r *EnrollmentPostgresRepository) UpdateStatus(ctx context.Context, id int64, status model.EnrollmentStatus) error {
	query := `
		UPDATE enrollments
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
