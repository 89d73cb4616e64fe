package service

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable code of a rejected operation
type Reason string

const (
	ReasonAlreadyHasActiveBooking Reason = "already_has_active_booking"
	ReasonSlotNotFound            Reason = "slot_not_found"
	ReasonSlotNotOpen             Reason = "slot_not_open"
	ReasonSlotInPast              Reason = "slot_in_past"
	ReasonDuplicateBooking        Reason = "duplicate_booking"
	ReasonOverlappingBooking      Reason = "overlapping_booking"
	ReasonSlotFull                Reason = "slot_full"
	ReasonBusy                    Reason = "busy"
	ReasonTransactionFailed       Reason = "transaction_failed"

	ReasonEnrollmentNotFound  Reason = "enrollment_not_found"
	ReasonNotEnrollmentOwner  Reason = "not_enrollment_owner"
	ReasonEnrollmentNotActive Reason = "enrollment_not_active"
	ReasonInvalidSlot         Reason = "invalid_slot"
)

var reasonMessages = map[Reason]string{
	ReasonAlreadyHasActiveBooking: "You already have an upcoming booking. Finish or cancel it before booking another slot.",
	ReasonSlotNotFound:            "This slot does not exist.",
	ReasonSlotNotOpen:             "This slot is no longer open for booking.",
	ReasonSlotInPast:              "This slot is in the past.",
	ReasonDuplicateBooking:        "You have already booked this slot.",
	ReasonOverlappingBooking:      "You have another booking that overlaps this time.",
	ReasonSlotFull:                "This slot is already full.",
	ReasonBusy:                    "The slot is busy right now. Please try again.",
	ReasonTransactionFailed:       "Something went wrong. Please try again.",
	ReasonEnrollmentNotFound:      "This booking does not exist.",
	ReasonNotEnrollmentOwner:      "This booking belongs to another teacher.",
	ReasonEnrollmentNotActive:     "This booking can no longer be changed.",
	ReasonInvalidSlot:             "The slot details are invalid.",
}

func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Rejection is returned for every refused operation. The store is left unchanged.
type Rejection struct {
	Reason  Reason
	Message string
	Err     error
}

func Reject(reason Reason) *Rejection {
	return &Rejection{Reason: reason, Message: reason.Message()}
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Reason, r.Err)
	}
	return string(r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Is matches any rejection carrying the same reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// Transient reports whether resubmitting the same request may succeed.
func (r *Rejection) Transient() bool {
	return r.Reason == ReasonBusy || r.Reason == ReasonTransactionFailed
}

func (r *Rejection) wrap(err error) *Rejection {
	return &Rejection{Reason: r.Reason, Message: r.Message, Err: err}
}

var (
	ErrAlreadyHasActiveBooking = Reject(ReasonAlreadyHasActiveBooking)
	ErrSlotNotFound            = Reject(ReasonSlotNotFound)
	ErrSlotNotOpen             = Reject(ReasonSlotNotOpen)
	ErrSlotInPast              = Reject(ReasonSlotInPast)
	ErrDuplicateBooking        = Reject(ReasonDuplicateBooking)
	ErrOverlappingBooking      = Reject(ReasonOverlappingBooking)
	ErrSlotFull                = Reject(ReasonSlotFull)
	ErrBusy                    = Reject(ReasonBusy)
	ErrTransactionFailed       = Reject(ReasonTransactionFailed)
	ErrEnrollmentNotFound      = Reject(ReasonEnrollmentNotFound)
	ErrNotEnrollmentOwner      = Reject(ReasonNotEnrollmentOwner)
	ErrEnrollmentNotActive     = Reject(ReasonEnrollmentNotActive)
	ErrInvalidSlot             = Reject(ReasonInvalidSlot)
)

// AsRejection extracts the rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
