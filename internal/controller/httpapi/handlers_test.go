package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/inmem"
	"github.com/Freeeeeet/slot_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBookings struct {
	err error
}

func (s stubBookings) BookSlot(context.Context, int64, int64) (*service.BookingResult, error) {
	return nil, s.err
}

func (s stubBookings) CancelEnrollment(context.Context, int64, int64) (*model.Enrollment, error) {
	return nil, s.err
}

func (s stubBookings) ListTeacherEnrollments(context.Context, int64) ([]*model.Enrollment, error) {
	return nil, s.err
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func newLiveRouter(t *testing.T) http.Handler {
	t.Helper()
	db := inmem.New()
	projector := service.NewProjector()
	return NewRouter(RouterConfig{
		Bookings:       service.NewBookingService(db, service.NewValidator(true), projector, time.UTC, zap.NewNop()),
		Slots:          service.NewSlotService(db, projector, time.UTC, zap.NewNop()),
		RequestTimeout: time.Second,
		Logger:         zap.NewNop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format(model.DateLayout)
}

func TestBookingFlow(t *testing.T) {
	router := newLiveRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/slots", CreateSlotRequest{
		SchoolID: 3, Date: tomorrow(), StartTime: "09:00", EndTime: "10:30", Capacity: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	slot := decode[SlotResponse](t, rec)
	assert.Equal(t, "open", slot.Status)
	assert.Equal(t, model.NewTimeOfDay(10, 30), slot.EndTime)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bookings", BookSlotRequest{TeacherID: 7, SlotID: slot.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booked := decode[BookSlotResponse](t, rec)
	assert.NotEmpty(t, booked.SessionID)
	assert.Equal(t, "full", booked.Slot.Status)
	assert.Equal(t, 1, booked.Slot.CapacityEnrolled)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bookings", BookSlotRequest{TeacherID: 8, SlotID: slot.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_full", decode[ErrorResponse](t, rec).Error.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/teachers/7/enrollments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enrollments := decode[[]EnrollmentResponse](t, rec)
	require.Len(t, enrollments, 1)
	assert.Equal(t, booked.EnrollmentID, enrollments[0].ID)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/bookings/"+itoa(booked.EnrollmentID)+"?teacher_id=8", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/bookings/"+itoa(booked.EnrollmentID)+"?teacher_id=7", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[EnrollmentResponse](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.Slot)
	assert.Equal(t, "open", cancelled.Slot.Status)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/slots?school_id=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]SlotResponse](t, rec), 1)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/slots/"+itoa(slot.ID)+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[SlotResponse](t, rec).Status)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/slots/"+itoa(slot.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[SlotResponse](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bookings", BookSlotRequest{TeacherID: 7, SlotID: slot.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_not_open", decode[ErrorResponse](t, rec).Error.Code)
}

func TestCreateSlotValidation(t *testing.T) {
	router := newLiveRouter(t)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(model.DateLayout)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "malformed json", body: "nope", wantCode: http.StatusBadRequest, wantErr: codeBadRequest},
		{name: "missing school", body: CreateSlotRequest{Date: tomorrow(), StartTime: "09:00", EndTime: "10:00", Capacity: 1}, wantCode: http.StatusBadRequest, wantErr: codeBadRequest},
		{name: "bad date", body: CreateSlotRequest{SchoolID: 1, Date: "16.10.2026", StartTime: "09:00", EndTime: "10:00", Capacity: 1}, wantCode: http.StatusBadRequest, wantErr: codeBadRequest},
		{name: "bad time", body: CreateSlotRequest{SchoolID: 1, Date: tomorrow(), StartTime: "9am", EndTime: "10:00", Capacity: 1}, wantCode: http.StatusBadRequest, wantErr: codeBadRequest},
		{name: "end before start", body: CreateSlotRequest{SchoolID: 1, Date: tomorrow(), StartTime: "10:00", EndTime: "09:00", Capacity: 1}, wantCode: http.StatusUnprocessableEntity, wantErr: string(service.ReasonInvalidSlot)},
		{name: "starts at midnight", body: CreateSlotRequest{SchoolID: 1, Date: tomorrow(), StartTime: "24:00", EndTime: "24:00", Capacity: 1}, wantCode: http.StatusUnprocessableEntity, wantErr: string(service.ReasonInvalidSlot)},
		{name: "no capacity", body: CreateSlotRequest{SchoolID: 1, Date: tomorrow(), StartTime: "09:00", EndTime: "10:00"}, wantCode: http.StatusUnprocessableEntity, wantErr: string(service.ReasonInvalidSlot)},
		{name: "past date", body: CreateSlotRequest{SchoolID: 1, Date: yesterday, StartTime: "09:00", EndTime: "10:00", Capacity: 1}, wantCode: http.StatusUnprocessableEntity, wantErr: string(service.ReasonSlotInPast)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/slots", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Error.Code)
		})
	}
}

func TestCreateSlotEndingAtMidnight(t *testing.T) {
	router := newLiveRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/slots", CreateSlotRequest{
		SchoolID: 1, Date: tomorrow(), StartTime: "23:00", EndTime: "24:00", Capacity: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"end_time":"24:00"`)
	assert.Equal(t, model.EndOfDay, decode[SlotResponse](t, rec).EndTime)
}

func TestRejectionStatus(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
	}{
		{err: service.ErrAlreadyHasActiveBooking, wantCode: http.StatusConflict},
		{err: service.ErrSlotNotFound, wantCode: http.StatusNotFound},
		{err: service.ErrSlotNotOpen, wantCode: http.StatusConflict},
		{err: service.ErrSlotInPast, wantCode: http.StatusUnprocessableEntity},
		{err: service.ErrDuplicateBooking, wantCode: http.StatusConflict},
		{err: service.ErrOverlappingBooking, wantCode: http.StatusConflict},
		{err: service.ErrSlotFull, wantCode: http.StatusConflict},
		{err: service.ErrBusy, wantCode: http.StatusServiceUnavailable},
		{err: service.ErrTransactionFailed, wantCode: http.StatusInternalServerError},
		{err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := NewRouter(RouterConfig{Bookings: stubBookings{err: tt.err}, Logger: zap.NewNop()})

			rec := doJSON(t, router, http.MethodPost, "/api/v1/bookings", BookSlotRequest{TeacherID: 1, SlotID: 2})
			require.Equal(t, tt.wantCode, rec.Code)

			body := decode[ErrorResponse](t, rec)
			if rejection, ok := service.AsRejection(tt.err); ok {
				assert.Equal(t, string(rejection.Reason), body.Error.Code)
				assert.Equal(t, rejection.Message, body.Error.Message)
			} else {
				assert.Equal(t, codeInternal, body.Error.Code)
			}

			if tt.err == service.ErrBusy {
				assert.Equal(t, retryAfterSeconds, rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestBadPathAndQuery(t *testing.T) {
	router := newLiveRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/slots/abc"},
		{http.MethodGet, "/api/v1/slots"},
		{http.MethodGet, "/api/v1/slots?school_id=1&from=tomorrow"},
		{http.MethodDelete, "/api/v1/bookings/1"},
		{http.MethodGet, "/api/v1/teachers/0/enrollments"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, router, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/slots/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	router := newLiveRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	up := NewRouter(RouterConfig{Health: stubPinger{}, Logger: zap.NewNop()})
	assert.Equal(t, http.StatusOK, doJSON(t, up, http.MethodGet, "/healthz", nil).Code)

	down := NewRouter(RouterConfig{Health: stubPinger{err: errors.New("refused")}, Logger: zap.NewNop()})
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, down, http.MethodGet, "/healthz", nil).Code)
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(50 * time.Millisecond))
	router.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})

	rec := doJSON(t, router, http.MethodGet, "/", nil)
	assert.JSONEq(t, `{"deadline":true}`, rec.Body.String())
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
