package service

import (
	"testing"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/stretchr/testify/assert"
)

func openSlot(id int64, daysFromToday int, start, end model.TimeOfDay) *model.Slot {
	return &model.Slot{
		ID:               id,
		SchoolID:         1,
		Date:             testToday.AddDate(0, 0, daysFromToday),
		StartTime:        start,
		EndTime:          end,
		CapacityRequired: 2,
		Status:           model.SlotStatusOpen,
	}
}

func booked(slot *model.Slot) *model.BookedSlot {
	return &model.BookedSlot{
		EnrollmentID: slot.ID * 10,
		SlotID:       slot.ID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		SlotStatus:   slot.Status,
	}
}

func TestValidatorRuleOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"single_active_booking", "slot_open", "not_in_past", "no_duplicate", "no_overlap", "capacity"},
		NewValidator(true).Rules(),
	)
	assert.Equal(t,
		[]string{"slot_open", "not_in_past", "no_duplicate", "no_overlap", "capacity"},
		NewValidator(false).Rules(),
	)
}

func TestValidatorPreLock(t *testing.T) {
	upcoming := openSlot(1, 2, at(9, 0), at(10, 0))
	yesterday := openSlot(2, -1, at(9, 0), at(10, 0))
	completed := openSlot(3, 0, at(8, 0), at(9, 0))
	completed.Status = model.SlotStatusCompleted
	cancelled := openSlot(4, 5, at(8, 0), at(9, 0))
	cancelled.Status = model.SlotStatusCancelled
	laterToday := openSlot(5, 0, at(15, 0), at(16, 0))

	tests := []struct {
		name     string
		bookings []*model.BookedSlot
		want     Reason
	}{
		{name: "no bookings"},
		{name: "past booking does not bind", bookings: []*model.BookedSlot{booked(yesterday)}},
		{name: "completed slot does not bind", bookings: []*model.BookedSlot{booked(completed)}},
		{name: "cancelled slot does not bind", bookings: []*model.BookedSlot{booked(cancelled)}},
		{name: "upcoming booking binds", bookings: []*model.BookedSlot{booked(upcoming)}, want: ReasonAlreadyHasActiveBooking},
		{name: "booking later today binds", bookings: []*model.BookedSlot{booked(laterToday)}, want: ReasonAlreadyHasActiveBooking},
	}
	v := NewValidator(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := v.PreLock(&Candidate{TeacherID: 1, SlotID: 99, Bookings: tt.bookings, Today: testToday})
			assert.Equal(t, tt.want == "", d.Allowed)
			assert.Equal(t, tt.want, d.Reason)
		})
	}

	// disabled rule always allows
	d := NewValidator(false).PreLock(&Candidate{Bookings: []*model.BookedSlot{booked(upcoming)}, Today: testToday})
	assert.True(t, d.Allowed)
}

func TestValidatorLocked(t *testing.T) {
	a := openSlot(1, 1, at(9, 0), at(10, 0))
	b := openSlot(2, 1, at(9, 30), at(10, 30))
	c := openSlot(3, 1, at(10, 0), at(11, 0))
	otherDay := openSlot(4, 2, at(9, 30), at(10, 30))
	past := openSlot(5, -1, at(9, 0), at(10, 0))

	full := openSlot(6, 1, at(12, 0), at(13, 0))
	full.CapacityEnrolled = 2
	full.Status = model.SlotStatusFull

	// status not yet flipped but no seats left
	exhausted := openSlot(7, 1, at(12, 0), at(13, 0))
	exhausted.CapacityEnrolled = 2

	cancelled := openSlot(8, 1, at(12, 0), at(13, 0))
	cancelled.Status = model.SlotStatusCancelled
	completed := openSlot(9, 1, at(12, 0), at(13, 0))
	completed.Status = model.SlotStatusCompleted

	pastAndBooked := openSlot(10, -1, at(9, 0), at(10, 0))

	tests := []struct {
		name     string
		slot     *model.Slot
		bookings []*model.BookedSlot
		want     Reason
		rule     string
	}{
		{name: "missing slot", want: ReasonSlotNotFound, rule: "slot_open"},
		{name: "cancelled slot", slot: cancelled, want: ReasonSlotNotOpen, rule: "slot_open"},
		{name: "completed slot", slot: completed, want: ReasonSlotNotOpen, rule: "slot_open"},
		{name: "full slot", slot: full, want: ReasonSlotFull, rule: "slot_open"},
		{name: "past slot", slot: past, want: ReasonSlotInPast, rule: "not_in_past"},
		{name: "past wins over duplicate", slot: pastAndBooked, bookings: []*model.BookedSlot{booked(pastAndBooked)}, want: ReasonSlotInPast, rule: "not_in_past"},
		{name: "duplicate", slot: a, bookings: []*model.BookedSlot{booked(a)}, want: ReasonDuplicateBooking, rule: "no_duplicate"},
		{name: "overlap B after A", slot: b, bookings: []*model.BookedSlot{booked(a)}, want: ReasonOverlappingBooking, rule: "no_overlap"},
		{name: "C adjacent to A", slot: c, bookings: []*model.BookedSlot{booked(a)}},
		{name: "same time other day", slot: otherDay, bookings: []*model.BookedSlot{booked(a)}},
		{name: "no seats left", slot: exhausted, want: ReasonSlotFull, rule: "capacity"},
		{name: "allowed", slot: a},
	}
	v := NewValidator(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := v.Locked(&Candidate{TeacherID: 1, SlotID: 1, Slot: tt.slot, Bookings: tt.bookings, Today: testToday})
			assert.Equal(t, tt.want == "", d.Allowed)
			assert.Equal(t, tt.want, d.Reason)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}
