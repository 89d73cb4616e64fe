package httpapi

import (
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

// ErrorDetail is the body of every failed response
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type BookSlotRequest struct {
	TeacherID int64 `json:"teacher_id" binding:"required,gt=0"`
	SlotID    int64 `json:"slot_id" binding:"required,gt=0"`
}

type BookSlotResponse struct {
	EnrollmentID int64        `json:"enrollment_id"`
	SessionID    string       `json:"session_id"`
	Slot         SlotResponse `json:"slot"`
}

// CreateSlotRequest carries dates as YYYY-MM-DD and times as HH:MM
type CreateSlotRequest struct {
	SchoolID  int64  `json:"school_id" binding:"required,gt=0"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Capacity  int    `json:"capacity"`
}

type SlotResponse struct {
	ID               int64           `json:"id"`
	SchoolID         int64           `json:"school_id"`
	Date             string          `json:"date"`
	StartTime        model.TimeOfDay `json:"start_time"`
	EndTime          model.TimeOfDay `json:"end_time"`
	CapacityRequired int             `json:"capacity_required"`
	CapacityEnrolled int             `json:"capacity_enrolled"`
	Status           string          `json:"status"`
}

type EnrollmentResponse struct {
	ID        int64         `json:"id"`
	SlotID    int64         `json:"slot_id"`
	TeacherID int64         `json:"teacher_id"`
	Status    string        `json:"status"`
	BookedAt  time.Time     `json:"booked_at"`
	Slot      *SlotResponse `json:"slot,omitempty"`
}

func toSlotResponse(s *model.Slot) SlotResponse {
	return SlotResponse{
		ID:               s.ID,
		SchoolID:         s.SchoolID,
		Date:             s.Date.Format(model.DateLayout),
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		CapacityRequired: s.CapacityRequired,
		CapacityEnrolled: s.CapacityEnrolled,
		Status:           string(s.Status),
	}
}

func toSlotResponses(slots []*model.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toEnrollmentResponse(e *model.Enrollment) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:        e.ID,
		SlotID:    e.SlotID,
		TeacherID: e.TeacherID,
		Status:    string(e.Status),
		BookedAt:  e.BookedAt,
	}
	if e.Slot != nil {
		slot := toSlotResponse(e.Slot)
		resp.Slot = &slot
	}
	return resp
}
