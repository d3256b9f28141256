package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/vitals/pkg/common/models"
)

const EventAppointmentBooked = "appointment_booked"

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Publisher forwards appointments to the event bus.
type Publisher struct {
	events EventPublisher
	source string
}

func NewPublisher(events EventPublisher, source string) *Publisher {
	return &Publisher{events: events, source: source}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Append(ctx context.Context, appt models.Appointment) error {
	return p.events.PublishEvent(ctx, EventAppointmentBooked, p.source, ToEventData(appt))
}

func ToEventData(appt models.Appointment) map[string]interface{} {
	return map[string]interface{}{
		"id":         appt.ID.String(),
		"patient_id": appt.PatientID,
		"doctor":     appt.Doctor,
		"date":       appt.Date.Format(dateLayout),
		"notes":      appt.Notes,
		"created_at": appt.CreatedAt.Format(time.RFC3339),
	}
}

// FromEvent decodes an appointment_booked event.
func FromEvent(event models.Event) (models.Appointment, error) {
	if event.Type != EventAppointmentBooked {
		return models.Appointment{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	str := func(key string) string {
		s, _ := event.Data[key].(string)
		return s
	}

	id, err := uuid.Parse(str("id"))
	if err != nil {
		return models.Appointment{}, fmt.Errorf("appointment id: %w", err)
	}
	date, err := time.Parse(dateLayout, str("date"))
	if err != nil {
		return models.Appointment{}, fmt.Errorf("appointment date: %w", err)
	}
	created, err := time.Parse(time.RFC3339, str("created_at"))
	if err != nil {
		created = event.Timestamp
	}
	appt := models.Appointment{
		ID:        id,
		PatientID: str("patient_id"),
		Doctor:    str("doctor"),
		Date:      date,
		Notes:     str("notes"),
		CreatedAt: created.UTC(),
	}
	if appt.PatientID == "" || appt.Doctor == "" {
		return models.Appointment{}, fmt.Errorf("appointment %s missing patient or doctor", id)
	}
	return appt, nil
}
