package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlot(t *testing.T) {
	tomorrow := testToday.AddDate(0, 0, 1)

	tests := []struct {
		name     string
		schoolID int64
		date     time.Time
		start    model.TimeOfDay
		end      model.TimeOfDay
		capacity int
		wantErr  error
	}{
		{name: "valid", schoolID: 1, date: tomorrow, start: at(9, 0), end: at(10, 0), capacity: 3},
		{name: "today", schoolID: 1, date: testToday, start: at(18, 0), end: at(19, 0), capacity: 1},
		{name: "yesterday", schoolID: 1, date: testToday.AddDate(0, 0, -1), start: at(9, 0), end: at(10, 0), capacity: 1, wantErr: ErrSlotInPast},
		{name: "zero capacity", schoolID: 1, date: tomorrow, start: at(9, 0), end: at(10, 0), capacity: 0, wantErr: ErrInvalidSlot},
		{name: "end before start", schoolID: 1, date: tomorrow, start: at(10, 0), end: at(9, 0), capacity: 1, wantErr: ErrInvalidSlot},
		{name: "empty window", schoolID: 1, date: tomorrow, start: at(9, 0), end: at(9, 0), capacity: 1, wantErr: ErrInvalidSlot},
		{name: "ends at midnight", schoolID: 1, date: tomorrow, start: at(23, 0), end: model.EndOfDay, capacity: 1},
		{name: "starts at midnight", schoolID: 1, date: tomorrow, start: model.EndOfDay, end: model.EndOfDay + 60, capacity: 1, wantErr: ErrInvalidSlot},
		{name: "no school", schoolID: 0, date: tomorrow, start: at(9, 0), end: at(10, 0), capacity: 1, wantErr: ErrInvalidSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			slot, err := env.slots.CreateSlot(context.Background(), tt.schoolID, tt.date, tt.start, tt.end, tt.capacity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, slot)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, slot.ID)
			assert.Equal(t, model.SlotStatusOpen, slot.Status)
			assert.Equal(t, 0, slot.CapacityEnrolled)
			assert.Equal(t, tt.date, slot.Date)

			stored := env.slot(t, slot.ID)
			assert.Equal(t, tt.capacity, stored.CapacityRequired)
		})
	}
}

func TestGetSlot(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedSlot(t, 2, at(9, 0), at(10, 0), 2)

	slot, err := env.slots.GetSlot(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.StartTime, slot.StartTime)

	_, err = env.slots.GetSlot(context.Background(), 999)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestListOpenSlots(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, -1, at(9, 0), at(10, 0), 2)
	later := env.seedSlot(t, 2, at(14, 0), at(15, 0), 2)
	earlier := env.seedSlot(t, 2, at(9, 0), at(10, 0), 2)
	full := env.seedSlot(t, 3, at(9, 0), at(10, 0), 1)
	env.seedSlot(t, 30, at(9, 0), at(10, 0), 2)

	_, err := env.bookings.BookSlot(context.Background(), 42, full.ID)
	require.NoError(t, err)

	slots, err := env.slots.ListOpenSlots(context.Background(), 1, testToday.AddDate(0, 0, -7), testToday.AddDate(0, 0, 7))
	require.NoError(t, err)

	ids := make([]int64, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{earlier.ID, later.ID}, ids)

	other, err := env.slots.ListOpenSlots(context.Background(), 2, testToday, testToday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCancelSlot(t *testing.T) {
	env := newTestEnv(t)
	slot := env.seedSlot(t, 1, at(9, 0), at(10, 0), 3)

	for _, teacherID := range []int64{1, 2} {
		_, err := env.bookings.BookSlot(context.Background(), teacherID, slot.ID)
		require.NoError(t, err)
	}

	cancelled, err := env.slots.CancelSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCancelled, cancelled.Status)

	for _, e := range env.db.Enrollments() {
		assert.Equal(t, model.EnrollmentStatusCancelled, e.Status)
	}
	for _, s := range env.db.Sessions() {
		assert.Equal(t, model.SessionStatusCancelled, s.Status)
	}

	var cancelEvents int
	for _, e := range env.db.OutboxEvents() {
		if e.EventType == model.EventSessionCancelled {
			cancelEvents++
		}
	}
	assert.Equal(t, 2, cancelEvents)

	// enrollment counters are history once a slot is terminal
	assert.Equal(t, 2, env.slot(t, slot.ID).CapacityEnrolled)
	env.requireCapacityInvariant(t, slot.ID)

	_, err = env.slots.CancelSlot(context.Background(), slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotOpen)

	_, err = env.slots.CancelSlot(context.Background(), 999)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	// teachers are free to book elsewhere
	next := env.seedSlot(t, 2, at(9, 0), at(10, 0), 1)
	_, err = env.bookings.BookSlot(context.Background(), 1, next.ID)
	assert.NoError(t, err)
}

func TestCompleteDueSlots(t *testing.T) {
	env := newTestEnv(t)
	due := env.seedSlot(t, 1, at(9, 0), at(10, 0), 2)
	alsoDue := env.seedSlot(t, 1, at(11, 0), at(12, 0), 1)
	upcoming := env.seedSlot(t, 5, at(9, 0), at(10, 0), 2)

	_, err := env.bookings.BookSlot(context.Background(), 1, due.ID)
	require.NoError(t, err)
	_, err = env.bookings.BookSlot(context.Background(), 2, alsoDue.ID)
	require.NoError(t, err)
	_, err = env.bookings.BookSlot(context.Background(), 3, upcoming.ID)
	require.NoError(t, err)

	// three days later
	env.slots.clock = func() time.Time { return testNow.AddDate(0, 0, 3) }

	completed, err := env.slots.CompleteDueSlots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, completed)

	assert.Equal(t, model.SlotStatusCompleted, env.slot(t, due.ID).Status)
	assert.Equal(t, model.SlotStatusCompleted, env.slot(t, alsoDue.ID).Status)
	assert.Equal(t, model.SlotStatusOpen, env.slot(t, upcoming.ID).Status)

	for _, e := range env.db.Enrollments() {
		want := model.EnrollmentStatusCompleted
		if e.SlotID == upcoming.ID {
			want = model.EnrollmentStatusBooked
		}
		assert.Equal(t, want, e.Status, "enrollment %d", e.ID)
	}
	for _, s := range env.db.Sessions() {
		want := model.SessionStatusCompleted
		if s.SlotID == upcoming.ID {
			want = model.SessionStatusScheduled
		}
		assert.Equal(t, want, s.Status, "session of enrollment %d", s.EnrollmentID)
	}

	var completedEvents int
	for _, e := range env.db.OutboxEvents() {
		if e.EventType == model.EventSessionCompleted {
			completedEvents++
		}
	}
	assert.Equal(t, 2, completedEvents)

	again, err := env.slots.CompleteDueSlots(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
}
