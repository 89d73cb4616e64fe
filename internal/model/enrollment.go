package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentStatusBooked    EnrollmentStatus = "booked"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// Enrollment is a teacher's reservation against a slot.
type Enrollment struct {
	ID        int64            `json:"id"`
	SlotID    int64            `json:"slot_id"`
	TeacherID int64            `json:"teacher_id"`
	Status    EnrollmentStatus `json:"status"`
	BookedAt  time.Time        `json:"booked_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Not stored with the enrollment row
	Slot *Slot `json:"slot,omitempty"`
}

// BookedSlot is a booked enrollment joined with the time window and status of its slot.
// It is the enrollment history the eligibility rules work on.
type BookedSlot struct {
	EnrollmentID int64
	SlotID       int64
	Date         time.Time
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	SlotStatus   SlotStatus
}

// IsUpcoming reports whether the booking still binds the teacher on or after today.
func (b *BookedSlot) IsUpcoming(today time.Time) bool {
	return !b.Date.Before(today) && !b.SlotStatus.IsTerminal()
}
