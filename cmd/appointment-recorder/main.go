package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/synaptica-ai/vitals/pkg/appointments"
	"github.com/synaptica-ai/vitals/pkg/common/config"
	"github.com/synaptica-ai/vitals/pkg/common/database"
	"github.com/synaptica-ai/vitals/pkg/common/kafka"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
)

// appointment-recorder copies appointment_booked events into Postgres.
func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.OpenPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	repo := appointments.NewRepository(db, "appointment-recorder")
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate appointment tables")
	}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.AppointmentTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.WithFields(map[string]interface{}{
		"topic":    cfg.AppointmentTopic,
		"group_id": cfg.KafkaGroupID,
	}).Info("Appointment Recorder started")

	err = consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		if event.Type != appointments.EventAppointmentBooked {
			return nil
		}
		appt, err := appointments.FromEvent(event)
		if err != nil {
			// Malformed events are logged and committed; retrying cannot fix them.
			logger.Log.WithError(err).WithField("event_id", event.ID).Warn("Skipping malformed appointment event")
			return nil
		}
		return repo.Append(ctx, appt)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("Consumer stopped")
		os.Exit(1)
	}

	logger.Log.Info("Appointment Recorder stopped")
}
