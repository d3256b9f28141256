package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/vitals/pkg/common/httpclient"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/serving/predictor"
)

// Classifier scores visits against a running serving-service. Every failure
// wraps predictor.ErrModelUnavailable.
type Classifier struct {
	baseURL string
	client  *http.Client
}

func NewClassifier(baseURL string, timeout time.Duration) *Classifier {
	return &Classifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.New(timeout),
	}
}

// Classify sends one prediction request for the visit.
func (c *Classifier) Classify(ctx context.Context, visit models.Visit) (bool, []float64, error) {
	resp, err := c.score(ctx, visit)
	if err != nil {
		return false, nil, err
	}
	return resp.HighRisk, resp.Probabilities, nil
}

func (c *Classifier) score(ctx context.Context, visit models.Visit) (models.PredictionResponse, error) {
	body, err := json.Marshal(models.PredictionRequest{
		PatientID: visit.PatientID,
		Features:  predictor.FeatureRow(visit),
	})
	if err != nil {
		return models.PredictionResponse{}, fmt.Errorf("%w: %v", predictor.ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/predict", bytes.NewReader(body))
	if err != nil {
		return models.PredictionResponse{}, fmt.Errorf("%w: %v", predictor.ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.PredictionResponse{}, fmt.Errorf("%w: %v", predictor.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.PredictionResponse{}, fmt.Errorf("%w: serving returned %d: %s",
			predictor.ErrModelUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out models.PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PredictionResponse{}, fmt.Errorf("%w: decode response: %v", predictor.ErrModelUnavailable, err)
	}
	return out, nil
}
