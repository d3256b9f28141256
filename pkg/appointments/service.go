package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/observability/metrics"
)

const dateLayout = "2006-01-02"

var (
	errDoctorRequired = errors.New("doctor required")
	errDateRequired   = errors.New("date required")
	errInvalidDate    = errors.New("invalid date")
	errPatientMissing = errors.New("patient id required")

	// ErrNotRecorded is returned when no sink accepted the appointment.
	ErrNotRecorded = errors.New("appointment not recorded")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Request struct {
	Doctor string `json:"doctor"`
	Date   string `json:"date"`
	Notes  string `json:"notes,omitempty"`
}

// Sink is one destination of the append-only appointment log.
type Sink interface {
	Name() string
	Append(ctx context.Context, appt models.Appointment) error
}

type Service struct {
	sinks []Sink
	now   func() time.Time
}

func NewService(sinks ...Sink) *Service {
	return &Service{sinks: sinks, now: time.Now}
}

// Book validates the request and appends it to every sink. Writes are best
// effort: a failing sink is logged and skipped, and Book fails only when no
// sink recorded the appointment.
func (s *Service) Book(ctx context.Context, patientID string, req Request) (models.Appointment, error) {
	appt, err := s.validate(patientID, req)
	if err != nil {
		return models.Appointment{}, err
	}

	var failures int
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, appt); err != nil {
			failures++
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"sink":           sink.Name(),
				"appointment_id": appt.ID.String(),
			}).Warn("appointment log write failed")
		}
	}
	if len(s.sinks) > 0 && failures == len(s.sinks) {
		metrics.ObserveAppointment(false, failures)
		return models.Appointment{}, ErrNotRecorded
	}
	metrics.ObserveAppointment(true, failures)

	logger.Log.WithFields(map[string]interface{}{
		"appointment_id": appt.ID.String(),
		"patient_id":     appt.PatientID,
		"doctor":         appt.Doctor,
	}).Info("Appointment booked")
	return appt, nil
}

func (s *Service) validate(patientID string, req Request) (models.Appointment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return models.Appointment{}, ValidationError{reason: errPatientMissing}
	}
	doctor := strings.TrimSpace(req.Doctor)
	if doctor == "" {
		return models.Appointment{}, ValidationError{reason: errDoctorRequired}
	}
	rawDate := strings.TrimSpace(req.Date)
	if rawDate == "" {
		return models.Appointment{}, ValidationError{reason: errDateRequired}
	}
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return models.Appointment{}, ValidationError{reason: fmt.Errorf("%w %q, expected YYYY-MM-DD", errInvalidDate, rawDate)}
	}

	return models.Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		Doctor:    doctor,
		Date:      date,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: s.now().UTC(),
	}, nil
}
