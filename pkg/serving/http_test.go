package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

// smokingArtifact scores Current smoker high and everyone else low.
const smokingArtifact = `{"model":{"type":"classification","algorithm":"logistic_regression","version":"t1",
"feature_names":["Smoking_Status"],"weights":{"bias":2,"coefficients":[-3]},
"encoders":{"Smoking_Status":["Current smoker","Former","Never"]}}}`

type countingRecorder struct {
	calls int
	limit int
}

func (c *countingRecorder) RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error {
	c.calls++
	return nil
}

func (c *countingRecorder) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	c.limit = limit
	return []PredictionLog{{PatientID: "3", ModelVersion: "t1", HighRisk: true}}, nil
}

func newRouter(t *testing.T, artifact string, rec PredictionRecorder) *mux.Router {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if artifact != "" {
		require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))
	}
	router := mux.NewRouter()
	NewHTTPHandler(predictor.NewPredictor(path), rec, 1<<20).Register(router)
	return router
}

func post(router http.Handler, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPredictEndpoint(t *testing.T) {
	recorder := &countingRecorder{}
	router := newRouter(t, smokingArtifact, recorder)

	rec := post(router, models.PredictionRequest{PatientID: "3", Features: map[string]interface{}{"Smoking_Status": "Current smoker"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.PredictionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.HighRisk)
	require.Equal(t, "t1", resp.ModelVersion)
	require.Len(t, resp.Probabilities, 2)
	require.Equal(t, 1, recorder.calls)
}

func TestPredictEndpointErrors(t *testing.T) {
	router := newRouter(t, smokingArtifact, nil)

	rec := post(router, models.PredictionRequest{Features: map[string]interface{}{"Smoking_Status": "Occasional"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(router, models.PredictionRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	missing := newRouter(t, "", nil)
	rec = post(missing, models.PredictionRequest{Features: map[string]interface{}{"Smoking_Status": "Never"}})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListModels(t *testing.T) {
	router := newRouter(t, smokingArtifact, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var infos []predictor.ModelInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&infos))
	require.Len(t, infos, 1)
	require.Equal(t, []string{"Smoking_Status"}, infos[0].FeatureNames)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRecentPredictions(t *testing.T) {
	recorder := &countingRecorder{}
	router := newRouter(t, smokingArtifact, recorder)

	rec := get(router, "/api/v1/predictions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultLogLimit, recorder.limit)
	var logs []PredictionLog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&logs))
	require.Len(t, logs, 1)
	require.Equal(t, "3", logs[0].PatientID)

	rec = get(router, "/api/v1/predictions?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, maxLogLimit, recorder.limit)

	rec = get(router, "/api/v1/predictions?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentPredictionsNeedsRecorder(t *testing.T) {
	rec := get(newRouter(t, smokingArtifact, nil), "/api/v1/predictions")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
