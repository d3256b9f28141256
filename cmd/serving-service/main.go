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
	"github.com/synaptica-ai/vitals/pkg/common/config"
	"github.com/synaptica-ai/vitals/pkg/common/database"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/gateway/middleware"
	"github.com/synaptica-ai/vitals/pkg/serving"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
	"gorm.io/gorm"
)

func main() {
	logger.Init()
	cfg := config.Load()

	predictorEngine := predictor.NewPredictor(cfg.ModelArtifactPath)
	if err := predictorEngine.Load(); err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ModelArtifactPath).Warn("Model artifact not loaded; predictions return 503 until it appears")
	}

	var (
		db       *gorm.DB
		recorder serving.PredictionRecorder
	)
	if cfg.EnableDB {
		conn, err := database.OpenPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		repo := serving.NewRepository(conn)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
		}
		db, recorder = conn, repo
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	serving.NewHTTPHandler(predictorEngine, recorder, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServingPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServingPort,
		}).Info("Serving Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Serving Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := database.ClosePostgres(db); err != nil {
		logger.Log.WithError(err).Error("Failed to close database")
	}

	logger.Log.Info("Serving Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
