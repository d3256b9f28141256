package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/vitals/pkg/appointments"
	"github.com/synaptica-ai/vitals/pkg/common/config"
	"github.com/synaptica-ai/vitals/pkg/common/database"
	"github.com/synaptica-ai/vitals/pkg/common/kafka"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/dashboard"
	"github.com/synaptica-ai/vitals/pkg/gateway/middleware"
	"github.com/synaptica-ai/vitals/pkg/observability/metrics"
	"github.com/synaptica-ai/vitals/pkg/records"
	"github.com/synaptica-ai/vitals/pkg/risk"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
	"github.com/synaptica-ai/vitals/pkg/serving/remote"
	"github.com/synaptica-ai/vitals/pkg/session"
	"gorm.io/gorm"
)

func main() {
	logger.Init()
	cfg := config.Load()
	ctx := context.Background()

	thresholds, err := risk.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load risk thresholds")
	}
	policy, err := records.ParsePolicy(cfg.VitalsPolicy)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid vitals policy")
	}

	loader := &records.Loader{Options: records.Options{Policy: policy, BandFor: thresholds.BandFor}}
	store, report, err := loader.Load(ctx, cfg.DatasetSource)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load dataset")
	}
	for _, d := range report.Dropped {
		logger.Log.WithFields(map[string]interface{}{
			"row":        d.Row,
			"patient_id": d.PatientID,
			"reason":     d.Reason,
		}).Warn("Dataset row dropped")
	}
	for _, w := range report.Warnings {
		logger.Log.Warn(w)
	}
	metrics.ObserveDataset(report.Loaded, len(report.Dropped), len(store.PatientIDs()))

	engine := risk.NewEngine(thresholds, newClassifier(cfg))

	sessions, redisClient := newSessionStore(ctx, cfg)
	sinks, db, producer := newAppointmentSinks(cfg)

	handler := dashboard.NewHTTPHandler(
		dashboard.NewService(store, engine),
		sessions,
		appointments.NewService(sinks...),
		cfg.SessionTTL,
		cfg.MaxRequestBody,
	)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	handler.Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"patients": len(store.PatientIDs()),
			"visits":   store.VisitCount(),
		}).Info("Dashboard Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Dashboard Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if producer != nil {
		producer.Close()
	}
	if err := database.ClosePostgres(db); err != nil {
		logger.Log.WithError(err).Error("Failed to close database")
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Log.Info("Dashboard Service stopped")
}

// newClassifier prefers a remote serving-service when one is configured.
// A missing local artifact is not fatal: assessments degrade to health-score
// only until the file appears.
func newClassifier(cfg *config.Config) risk.Classifier {
	if cfg.ModelServingURL != "" {
		logger.Log.WithField("url", cfg.ModelServingURL).Info("Using remote model")
		return remote.NewClassifier(cfg.ModelServingURL, cfg.ModelTimeout)
	}

	p := predictor.NewPredictor(cfg.ModelArtifactPath)
	if err := p.Load(); err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ModelArtifactPath).Warn("Model artifact not loaded")
	}
	return p
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, *redis.Client) {
	if cfg.EnableRedis {
		client, err := database.OpenRedis(ctx, cfg)
		if err == nil {
			return session.NewRedisStore(client, cfg.SessionTTL), client
		}
		client.Close()
		logger.Log.WithError(err).Warn("Falling back to in-memory sessions")
	}
	return session.NewMemoryStore(cfg.SessionTTL), nil
}

func newAppointmentSinks(cfg *config.Config) ([]appointments.Sink, *gorm.DB, *kafka.Producer) {
	var (
		sinks    []appointments.Sink
		db       *gorm.DB
		producer *kafka.Producer
	)

	csvLog, err := appointments.NewCSVLog(cfg.AppointmentLogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Appointment CSV log disabled")
	} else {
		sinks = append(sinks, csvLog)
	}

	if cfg.EnableDB {
		conn, err := database.OpenPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Appointment database sink disabled")
		} else {
			repo := appointments.NewRepository(conn, "dashboard-service")
			if err := repo.AutoMigrate(); err != nil {
				logger.Log.WithError(err).Fatal("Failed to migrate appointment tables")
			}
			sinks = append(sinks, repo)
			db = conn
		}
	}

	if cfg.EnableKafka {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.AppointmentTopic)
		sinks = append(sinks, appointments.NewPublisher(producer, "dashboard-service"))
	}

	return sinks, db, producer
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
