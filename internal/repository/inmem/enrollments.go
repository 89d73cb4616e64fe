package inmem

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

type enrollmentRepository struct {
	tx *tx
}

func (r *enrollmentRepository) Create(_ context.Context, enrollment *model.Enrollment) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := r.tx.slot(enrollment.SlotID); !ok {
		return fmt.Errorf("create enrollment: slot %d does not exist", enrollment.SlotID)
	}

	// partial unique index on (slot_id, teacher_id) where status = booked; commit checks
	// again against rows other transactions committed meanwhile
	if enrollment.Status == model.EnrollmentStatusBooked {
		duplicate := false
		r.tx.eachEnrollment(func(e *model.Enrollment) {
			if e.SlotID == enrollment.SlotID && e.TeacherID == enrollment.TeacherID && e.Status == model.EnrollmentStatusBooked {
				duplicate = true
			}
		})
		if duplicate {
			return fmt.Errorf("create enrollment: %w", repository.ErrDuplicate)
		}
	}

	db.enrollmentSeq++
	enrollment.ID = db.enrollmentSeq
	enrollment.UpdatedAt = db.now()
	r.tx.enrollments[enrollment.ID] = copyEnrollment(enrollment)
	return nil
}

func (r *enrollmentRepository) GetByID(_ context.Context, id int64) (*model.Enrollment, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := r.tx.enrollment(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyEnrollment(e), nil
}

func (r *enrollmentRepository) ListByTeacher(_ context.Context, teacherID int64) ([]*model.Enrollment, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []*model.Enrollment
	r.tx.eachEnrollment(func(e *model.Enrollment) {
		if e.TeacherID != teacherID {
			return
		}
		c := copyEnrollment(e)
		if s, ok := r.tx.slot(e.SlotID); ok {
			c.Slot = copySlot(s)
		}
		out = append(out, c)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *enrollmentRepository) ListBookedByTeacher(_ context.Context, teacherID int64) ([]*model.BookedSlot, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []*model.BookedSlot
	r.tx.eachEnrollment(func(e *model.Enrollment) {
		if e.TeacherID != teacherID || e.Status != model.EnrollmentStatusBooked {
			return
		}
		s, ok := r.tx.slot(e.SlotID)
		if !ok {
			return
		}
		out = append(out, &model.BookedSlot{
			EnrollmentID: e.ID,
			SlotID:       s.ID,
			Date:         s.Date,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			SlotStatus:   s.Status,
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out, nil
}

func (r *enrollmentRepository) ListBookedBySlot(_ context.Context, slotID int64) ([]*model.Enrollment, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []*model.Enrollment
	r.tx.eachEnrollment(func(e *model.Enrollment) {
		if e.SlotID == slotID && e.Status == model.EnrollmentStatusBooked {
			out = append(out, copyEnrollment(e))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *enrollmentRepository) UpdateStatus(_ context.Context, id int64, status model.EnrollmentStatus) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	current, ok := r.tx.enrollment(id)
	if !ok {
		return repository.ErrNotFound
	}
	next := copyEnrollment(current)
	next.Status = status
	next.UpdatedAt = db.now()
	r.tx.enrollments[id] = next
	return nil
}
