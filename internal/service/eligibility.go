package service

import (
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

// Candidate is everything the eligibility rules look at for one booking attempt.
type Candidate struct {
	TeacherID int64
	SlotID    int64
	// Slot is the locked row, nil when it does not exist. Unset before locking.
	Slot *model.Slot
	// Bookings are the teacher's booked enrollments.
	Bookings []*model.BookedSlot
	Today    time.Time
}

// Rule returns "" to allow, otherwise the reason for denying.
type Rule struct {
	Name  string
	Check func(c *Candidate) Reason
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Rule    string
}

// Validator evaluates two ordered chains: one that runs before the slot row is locked,
// and one that runs against the locked row. The first failing rule wins.
type Validator struct {
	preLock []Rule
	locked  []Rule
}

func NewValidator(singleActiveBooking bool) *Validator {
	v := &Validator{
		locked: []Rule{
			{Name: "slot_open", Check: checkSlotOpen},
			{Name: "not_in_past", Check: checkNotInPast},
			{Name: "no_duplicate", Check: checkNoDuplicate},
			{Name: "no_overlap", Check: checkNoOverlap},
			{Name: "capacity", Check: checkCapacity},
		},
	}
	if singleActiveBooking {
		v.preLock = []Rule{{Name: "single_active_booking", Check: checkSingleActiveBooking}}
	}
	return v
}

func (v *Validator) PreLock(c *Candidate) Decision {
	return evaluate(v.preLock, c)
}

func (v *Validator) Locked(c *Candidate) Decision {
	return evaluate(v.locked, c)
}

// Rules lists rule names in evaluation order.
func (v *Validator) Rules() []string {
	names := make([]string, 0, len(v.preLock)+len(v.locked))
	for _, r := range v.preLock {
		names = append(names, r.Name)
	}
	for _, r := range v.locked {
		names = append(names, r.Name)
	}
	return names
}

func evaluate(rules []Rule, c *Candidate) Decision {
	for _, rule := range rules {
		if reason := rule.Check(c); reason != "" {
			return Decision{Reason: reason, Rule: rule.Name}
		}
	}
	return Decision{Allowed: true}
}

func checkSingleActiveBooking(c *Candidate) Reason {
	for _, b := range c.Bookings {
		if b.IsUpcoming(c.Today) {
			return ReasonAlreadyHasActiveBooking
		}
	}
	return ""
}

// A full slot is reported as SlotFull so that losers of a race for the last seat see the
// same reason whether they got the lock before or after the winner committed.
func checkSlotOpen(c *Candidate) Reason {
	switch {
	case c.Slot == nil:
		return ReasonSlotNotFound
	case c.Slot.Status == model.SlotStatusFull:
		return ReasonSlotFull
	case c.Slot.Status != model.SlotStatusOpen:
		return ReasonSlotNotOpen
	}
	return ""
}

func checkNotInPast(c *Candidate) Reason {
	if c.Slot.Date.Before(c.Today) {
		return ReasonSlotInPast
	}
	return ""
}

func checkNoDuplicate(c *Candidate) Reason {
	for _, b := range c.Bookings {
		if b.SlotID == c.Slot.ID {
			return ReasonDuplicateBooking
		}
	}
	return ""
}

func checkNoOverlap(c *Candidate) Reason {
	for _, b := range c.Bookings {
		if b.SlotID == c.Slot.ID || !b.Date.Equal(c.Slot.Date) {
			continue
		}
		if model.Overlaps(b.StartTime, b.EndTime, c.Slot.StartTime, c.Slot.EndTime) {
			return ReasonOverlappingBooking
		}
	}
	return ""
}

func checkCapacity(c *Candidate) Reason {
	if !c.Slot.HasCapacity() {
		return ReasonSlotFull
	}
	return ""
}
