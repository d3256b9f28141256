package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// PredictionRecorder persists scored requests and lists the latest ones.
// Recording is best effort.
type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
}

type HTTPHandler struct {
	predictor *predictor.Predictor
	recorder  PredictionRecorder
	maxBody   int64
}

func NewHTTPHandler(p *predictor.Predictor, recorder PredictionRecorder, maxBody int64) *HTTPHandler {
	return &HTTPHandler{predictor: p, recorder: recorder, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/models", h.handleListModels).Methods(http.MethodGet)
	if h.recorder != nil {
		router.HandleFunc("/api/v1/predictions", h.handleRecent).Methods(http.MethodGet)
	}
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Features) == 0 {
		http.Error(w, "features required", http.StatusBadRequest)
		return
	}

	res, err := h.predictor.Score(req.Features)
	if err != nil {
		var mismatch *predictor.EncodingMismatchError
		switch {
		case errors.As(err, &mismatch):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, predictor.ErrModelUnavailable):
			logger.Log.WithError(err).Warn("model unavailable")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			logger.Log.WithError(err).Error("prediction failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	resp := models.PredictionResponse{
		PatientID:     req.PatientID,
		HighRisk:      res.HighRisk,
		Probabilities: res.Probabilities,
		Confidence:    res.Confidence,
		ModelVersion:  res.Version,
		Latency:       time.Since(start),
	}

	if h.recorder != nil {
		if err := h.recorder.RecordPrediction(r.Context(), req, resp); err != nil {
			logger.Log.WithError(err).Warn("failed to record prediction")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"patient_id": req.PatientID,
		"high_risk":  resp.HighRisk,
		"latency_ms": resp.Latency.Milliseconds(),
	}).Info("Prediction completed")

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleListModels(w http.ResponseWriter, r *http.Request) {
	info, err := h.predictor.Info()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, []predictor.ModelInfo{info})
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
