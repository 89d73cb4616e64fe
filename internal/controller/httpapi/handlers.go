package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultListWindow = 14 * 24 * time.Hour

type BookingService interface {
	BookSlot(ctx context.Context, teacherID, slotID int64) (*service.BookingResult, error)
	CancelEnrollment(ctx context.Context, teacherID, enrollmentID int64) (*model.Enrollment, error)
	ListTeacherEnrollments(ctx context.Context, teacherID int64) ([]*model.Enrollment, error)
}

type SlotService interface {
	CreateSlot(ctx context.Context, schoolID int64, date time.Time, start, end model.TimeOfDay, capacity int) (*model.Slot, error)
	GetSlot(ctx context.Context, slotID int64) (*model.Slot, error)
	ListOpenSlots(ctx context.Context, schoolID int64, from, to time.Time) ([]*model.Slot, error)
	CancelSlot(ctx context.Context, slotID int64) (*model.Slot, error)
}

type Handler struct {
	bookings BookingService
	slots    SlotService
	logger   *zap.Logger
}

func NewHandler(bookings BookingService, slots SlotService, logger *zap.Logger) *Handler {
	return &Handler{bookings: bookings, slots: slots, logger: logger}
}

// BookSlot handles POST /api/v1/bookings
func (h *Handler) BookSlot(c *gin.Context) {
	var req BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid booking request", err)
		return
	}

	result, err := h.bookings.BookSlot(c.Request.Context(), req.TeacherID, req.SlotID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, BookSlotResponse{
		EnrollmentID: result.Enrollment.ID,
		SessionID:    result.Session.ID.String(),
		Slot:         toSlotResponse(result.Slot),
	})
}

// CancelBooking handles DELETE /api/v1/bookings/:id?teacher_id=
func (h *Handler) CancelBooking(c *gin.Context) {
	enrollmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	teacherID, err := strconv.ParseInt(c.Query("teacher_id"), 10, 64)
	if err != nil || teacherID <= 0 {
		badRequest(c, "teacher_id query parameter must be a positive integer", nil)
		return
	}

	enrollment, err := h.bookings.CancelEnrollment(c.Request.Context(), teacherID, enrollmentID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toEnrollmentResponse(enrollment))
}

// ListTeacherEnrollments handles GET /api/v1/teachers/:id/enrollments
func (h *Handler) ListTeacherEnrollments(c *gin.Context) {
	teacherID, ok := pathID(c, "id")
	if !ok {
		return
	}

	enrollments, err := h.bookings.ListTeacherEnrollments(c.Request.Context(), teacherID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	out := make([]EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, toEnrollmentResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

// CreateSlot handles POST /api/v1/slots
func (h *Handler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid slot request", err)
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD", err)
		return
	}
	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		badRequest(c, "start_time must be HH:MM", err)
		return
	}
	end, err := model.ParseTimeOfDay(req.EndTime)
	if err != nil {
		badRequest(c, "end_time must be HH:MM", err)
		return
	}

	slot, err := h.slots.CreateSlot(c.Request.Context(), req.SchoolID, date, start, end, req.Capacity)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toSlotResponse(slot))
}

// ListOpenSlots handles GET /api/v1/slots?school_id=&from=&to=
func (h *Handler) ListOpenSlots(c *gin.Context) {
	schoolID, err := strconv.ParseInt(c.Query("school_id"), 10, 64)
	if err != nil || schoolID <= 0 {
		badRequest(c, "school_id query parameter must be a positive integer", nil)
		return
	}

	from := time.Now()
	if v := c.Query("from"); v != "" {
		if from, err = model.ParseDate(v); err != nil {
			badRequest(c, "from must be YYYY-MM-DD", err)
			return
		}
	}
	to := from.Add(defaultListWindow)
	if v := c.Query("to"); v != "" {
		if to, err = model.ParseDate(v); err != nil {
			badRequest(c, "to must be YYYY-MM-DD", err)
			return
		}
	}

	slots, err := h.slots.ListOpenSlots(c.Request.Context(), schoolID, from, to)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toSlotResponses(slots))
}

// GetSlot handles GET /api/v1/slots/:id
func (h *Handler) GetSlot(c *gin.Context) {
	slotID, ok := pathID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toSlotResponse(slot))
}

// CancelSlot handles POST /api/v1/slots/:id/cancel
func (h *Handler) CancelSlot(c *gin.Context) {
	slotID, ok := pathID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.CancelSlot(c.Request.Context(), slotID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toSlotResponse(slot))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
