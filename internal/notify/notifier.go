package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"go.uber.org/zap"
)

// Notifier delivers outbox events to the outside world
type Notifier interface {
	Notify(ctx context.Context, event *model.OutboxEvent) error
}

// LogNotifier only logs events; used when no delivery channel is configured
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event *model.OutboxEvent) error {
	n.logger.Info("Session event",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.ByteString("payload", event.Payload),
	)
	return nil
}

var eventTitles = map[string]string{
	model.EventSessionMaterialized: "📅 Teaching session booked",
	model.EventSessionCancelled:    "❌ Teaching session cancelled",
	model.EventSessionCompleted:    "✅ Teaching session completed",
}

// FormatEvent renders a session event as an HTML chat message
func FormatEvent(event *model.OutboxEvent) (string, error) {
	payload, err := event.SessionPayload()
	if err != nil {
		return "", err
	}

	title, ok := eventTitles[event.EventType]
	if !ok {
		title = html.EscapeString(event.EventType)
	}

	return fmt.Sprintf(
		"<b>%s</b>\n\n🏫 School: %d\n👤 Teacher: %d\n🗓 %s %s–%s\n🔖 Enrollment #%d, slot #%d",
		title,
		payload.SchoolID,
		payload.TeacherID,
		html.EscapeString(payload.Date),
		payload.StartTime,
		payload.EndTime,
		payload.EnrollmentID,
		payload.SlotID,
	), nil
}
