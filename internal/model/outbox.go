package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSessionMaterialized = "session.materialized"
	EventSessionCancelled    = "session.cancelled"
	EventSessionCompleted    = "session.completed"
)

type OutboxEvent struct {
	ID        uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	// Seq breaks ties between events created at the same instant.
	Seq         int64
	PublishedAt *time.Time
}

type SessionEventPayload struct {
	SessionID    uuid.UUID     `json:"session_id"`
	EnrollmentID int64         `json:"enrollment_id"`
	SlotID       int64         `json:"slot_id"`
	TeacherID    int64         `json:"teacher_id"`
	SchoolID     int64         `json:"school_id"`
	Date         string        `json:"date"`
	StartTime    TimeOfDay     `json:"start_time"`
	EndTime      TimeOfDay     `json:"end_time"`
	Status       SessionStatus `json:"status"`
}

// NewSessionEvent builds an outbox event describing the current state of a session.
func NewSessionEvent(eventType string, session *Session) (OutboxEvent, error) {
	payload, err := json.Marshal(SessionEventPayload{
		SessionID:    session.ID,
		EnrollmentID: session.EnrollmentID,
		SlotID:       session.SlotID,
		TeacherID:    session.TeacherID,
		SchoolID:     session.SchoolID,
		Date:         session.Date.Format(DateLayout),
		StartTime:    session.StartTime,
		EndTime:      session.EndTime,
		Status:       session.Status,
	})
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal session event: %w", err)
	}

	return OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}, nil
}

func (e *OutboxEvent) SessionPayload() (*SessionEventPayload, error) {
	var payload SessionEventPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal session event %s: %w", e.ID, err)
	}
	return &payload, nil
}
