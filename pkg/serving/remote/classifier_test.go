package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/risk"
	"github.com/synaptica-ai/vitals/pkg/serving"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
)

const heartRateArtifact = `{"model":{"type":"classification","version":"hr1",
"feature_names":["Heart_Rate"],"weights":{"bias":-9,"coefficients":[0.1]}}}`

type countingRecorder struct{ rows int }

func (c *countingRecorder) RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error {
	c.rows++
	return nil
}

func (c *countingRecorder) Recent(ctx context.Context, limit int) ([]serving.PredictionLog, error) {
	return nil, nil
}

// startServing runs the serving routes over a heart-rate model and counts
// the requests that reach them.
func startServing(t *testing.T, recorder serving.PredictionRecorder) (*httptest.Server, *int64) {
	t.Helper()
	logger.Silence()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(heartRateArtifact), 0o644))

	router := mux.NewRouter()
	serving.NewHTTPHandler(predictor.NewPredictor(path), recorder, 0).Register(router)
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestClassifierAgainstServing(t *testing.T) {
	srv, _ := startServing(t, nil)
	c := NewClassifier(srv.URL+"/", time.Second)
	ctx := context.Background()

	high, probs, err := c.Classify(ctx, models.Visit{PatientID: "1", HeartRate: 110})
	require.NoError(t, err)
	require.True(t, high)
	require.Greater(t, probs[1], probs[0])

	high, probs, err = c.Classify(ctx, models.Visit{PatientID: "1", HeartRate: 60})
	require.NoError(t, err)
	require.False(t, high)
	require.Len(t, probs, 2)
	require.Greater(t, probs[0], probs[1])
}

func TestAssessScoresOnceRemotely(t *testing.T) {
	recorder := &countingRecorder{}
	srv, requests := startServing(t, recorder)
	engine := risk.NewEngine(risk.DefaultThresholds(), NewClassifier(srv.URL, time.Second))

	a := engine.Assess(context.Background(), models.Visit{PatientID: "1", HeartRate: 110, BMI: 24, SystolicBP: 120, DiastolicBP: 80})
	require.True(t, a.Prediction.Available())
	require.Equal(t, int64(1), atomic.LoadInt64(requests))
	require.Equal(t, 1, recorder.rows)

	_, probs, err := predictor.NewPredictor(writeArtifact(t)).Classify(context.Background(), models.Visit{HeartRate: 110})
	require.NoError(t, err)
	require.InDelta(t, probs[1]*100, a.Prediction.ConfidencePct, 0.01)
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(heartRateArtifact), 0o644))
	return path
}

func TestClassifierErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := NewClassifier(srv.URL, time.Second).Classify(context.Background(), models.Visit{PatientID: "1"})
	require.ErrorIs(t, err, predictor.ErrModelUnavailable)

	srv.Close()
	_, _, err = NewClassifier(srv.URL, time.Second).Classify(context.Background(), models.Visit{PatientID: "1"})
	require.ErrorIs(t, err, predictor.ErrModelUnavailable)
}
