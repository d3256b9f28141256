package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/observability/metrics"
)

var ErrModelUnavailable = errors.New("model unavailable")

// Classifier is the pre-trained binary heart-disease model. Classify scores
// the visit once and returns the label together with the class
// probabilities of that same scoring.
type Classifier interface {
	Classify(ctx context.Context, visit models.Visit) (bool, []float64, error)
}

type Engine struct {
	thresholds Thresholds
	classifier Classifier
}

// NewEngine builds an engine. A nil classifier is allowed and yields
// health-score-only assessments.
func NewEngine(thresholds Thresholds, classifier Classifier) *Engine {
	return &Engine{thresholds: thresholds, classifier: classifier}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Assess computes a fresh assessment for one visit. It never fails: model
// problems are reported in the prediction part only.
func (e *Engine) Assess(ctx context.Context, visit models.Visit) models.RiskAssessment {
	band := e.thresholds.BandFor(visit.HealthScore)
	prediction := e.predict(ctx, visit)

	assessment := models.RiskAssessment{
		PatientID:      visit.PatientID,
		VisitDate:      visit.Date,
		HealthScore:    visit.HealthScore,
		RiskBand:       band,
		BandColor:      BandColor(band),
		Prediction:     prediction,
		PreventiveTips: PreventiveTips(visit, e.thresholds),
		Consistency:    Reconcile(band, prediction),
	}

	if visit.StoredRiskLevel != "" && !strings.EqualFold(visit.StoredRiskLevel, string(band)) {
		assessment.DataQualityWarnings = append(assessment.DataQualityWarnings, fmt.Sprintf(
			"stored risk level %q differs from level %q derived from health score %.1f",
			visit.StoredRiskLevel, band, visit.HealthScore))
	}
	if len(visit.Missing) > 0 {
		assessment.DataQualityWarnings = append(assessment.DataQualityWarnings,
			"missing values for: "+strings.Join(visit.Missing, ", "))
	}

	metrics.ObserveAssessment(prediction.Available())
	return assessment
}

func (e *Engine) predict(ctx context.Context, visit models.Visit) (prediction models.ModelPrediction) {
	if e.classifier == nil {
		return unavailable(visit, ErrModelUnavailable)
	}

	defer func() {
		if r := recover(); r != nil {
			prediction = unavailable(visit, fmt.Errorf("%w: inference panicked: %v", ErrModelUnavailable, r))
		}
	}()

	high, probs, err := e.classifier.Classify(ctx, visit)
	if err != nil {
		return unavailable(visit, err)
	}
	if err := validateProbabilities(probs); err != nil {
		return unavailable(visit, err)
	}

	class := 0
	if high {
		class = 1
	}
	return models.ModelPrediction{
		Status:        models.PredictionAvailable,
		HighRisk:      high,
		ConfidencePct: math.Round(probs[class]*10000) / 100,
		Probabilities: probs,
	}
}

func validateProbabilities(probs []float64) error {
	if len(probs) != 2 {
		return fmt.Errorf("%w: expected 2 class probabilities, got %d", ErrModelUnavailable, len(probs))
	}
	for _, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v outside [0,1]", ErrModelUnavailable, p)
		}
	}
	return nil
}

func unavailable(visit models.Visit, err error) models.ModelPrediction {
	logger.Log.WithError(err).WithField("patient_id", visit.PatientID).Warn("model prediction unavailable")
	return models.ModelPrediction{
		Status: models.PredictionUnavailable,
		Reason: err.Error(),
	}
}
