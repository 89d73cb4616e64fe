package model

import "time"

type SlotStatus string

const (
	SlotStatusOpen      SlotStatus = "open"
	SlotStatusFull      SlotStatus = "full"
	SlotStatusCancelled SlotStatus = "cancelled"
	SlotStatusCompleted SlotStatus = "completed"
)

// IsTerminal reports whether the slot no longer accepts bookings or cancellations.
func (s SlotStatus) IsTerminal() bool {
	return s == SlotStatusCancelled || s == SlotStatusCompleted
}

// Slot is a fixed-capacity teaching window at a school. Date is the civil date at
// midnight UTC; StartTime and EndTime form a half-open interval on that date.
type Slot struct {
	ID               int64      `json:"id"`
	SchoolID         int64      `json:"school_id"`
	Date             time.Time  `json:"date"`
	StartTime        TimeOfDay  `json:"start_time"`
	EndTime          TimeOfDay  `json:"end_time"`
	CapacityRequired int        `json:"capacity_required"`
	CapacityEnrolled int        `json:"capacity_enrolled"`
	Status           SlotStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Remaining returns the number of seats still available.
func (s *Slot) Remaining() int {
	if s.CapacityEnrolled >= s.CapacityRequired {
		return 0
	}
	return s.CapacityRequired - s.CapacityEnrolled
}

// HasCapacity reports whether one more enrollment fits.
func (s *Slot) HasCapacity() bool {
	return s.CapacityEnrolled < s.CapacityRequired
}

// RecomputeStatus derives the status a slot should carry for the given counters.
// Terminal statuses are never left.
func RecomputeStatus(current SlotStatus, enrolled, required int) SlotStatus {
	if current.IsTerminal() {
		return current
	}
	if enrolled >= required {
		return SlotStatusFull
	}
	return SlotStatusOpen
}

// DateOf returns the civil date of t in loc, normalised to midnight UTC so it can be
// compared with Slot.Date.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

const DateLayout = "2006-01-02"
