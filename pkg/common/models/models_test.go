package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRiskAssessmentJSONRoundTrip(t *testing.T) {
	in := RiskAssessment{
		PatientID:   "101",
		VisitDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		HealthScore: 55,
		RiskBand:    BandHigh,
		BandColor:   "red",
		Prediction: ModelPrediction{
			Status:        PredictionAvailable,
			HighRisk:      true,
			ConfidencePct: 87.5,
			Probabilities: []float64{0.125, 0.875},
		},
		PreventiveTips: []Tip{
			{Code: "bmi", Message: "Adjust diet and exercise."},
			{Code: "smoking", Message: "Quit smoking."},
		},
		Consistency: Consistency{Flag: ConsistencyConfirmedRisk, Message: "consult physician"},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out RiskAssessment
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, in, out)
}

func TestVisitHas(t *testing.T) {
	v := Visit{Missing: []string{ColBMI}}
	require.False(t, v.Has(ColBMI))
	require.True(t, v.Has(ColHeartRate))
}
