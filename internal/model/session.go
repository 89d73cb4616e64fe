package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// SessionStatusFor maps an enrollment status onto the session it materializes.
func SessionStatusFor(status EnrollmentStatus) SessionStatus {
	switch status {
	case EnrollmentStatusCancelled:
		return SessionStatusCancelled
	case EnrollmentStatusCompleted:
		return SessionStatusCompleted
	default:
		return SessionStatusScheduled
	}
}

// Session is the teaching occurrence derived 1:1 from a booked enrollment.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	EnrollmentID int64         `json:"enrollment_id"`
	SlotID       int64         `json:"slot_id"`
	TeacherID    int64         `json:"teacher_id"`
	SchoolID     int64         `json:"school_id"`
	Date         time.Time     `json:"date"`
	StartTime    TimeOfDay     `json:"start_time"`
	EndTime      TimeOfDay     `json:"end_time"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
