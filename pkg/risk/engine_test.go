package risk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

type stubClassifier struct {
	high  bool
	probs []float64
	err   error
	panic bool
	calls int
}

func (s *stubClassifier) Classify(ctx context.Context, v models.Visit) (bool, []float64, error) {
	s.calls++
	if s.panic {
		panic("model exploded")
	}
	return s.high, s.probs, s.err
}

// healthyVisit triggers no preventive tip.
func healthyVisit(score float64) models.Visit {
	return models.Visit{
		PatientID:     "1",
		Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		HeightCm:      175,
		WeightKg:      70,
		BMI:           22,
		SystolicBP:    118,
		DiastolicBP:   76,
		HeartRate:     68,
		SmokingStatus: "Never",
		HealthScore:   score,
	}
}

func TestBandFor(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score float64
		band  models.RiskBand
	}{
		{100, models.BandLow},
		{80, models.BandLow},
		{79.9, models.BandMedium},
		{60, models.BandMedium},
		{59.99, models.BandHigh},
		{0, models.BandHigh},
	}
	for _, tc := range cases {
		require.Equal(t, tc.band, th.BandFor(tc.score), "score %v", tc.score)
	}

	conservative := ConservativeThresholds()
	require.Equal(t, models.BandMedium, conservative.BandFor(82))
	require.Equal(t, models.BandHigh, conservative.BandFor(65))
	require.Equal(t, ColorAmber, BandColor(models.BandMedium))
	require.Equal(t, ColorRed, BandColor(models.BandHigh))
}

func TestBMITipSweep(t *testing.T) {
	th := DefaultThresholds()
	for _, tc := range []struct {
		bmi  float64
		want bool
	}{
		{17.0, true},
		{18.5, false},
		{22.0, false},
		{25.0, false},
		{26.0, true},
	} {
		v := healthyVisit(90)
		v.BMI = tc.bmi
		require.Equal(t, tc.want, hasTip(PreventiveTips(v, th), TipBMI), "bmi %v", tc.bmi)
	}
}

func TestTipsFixedOrder(t *testing.T) {
	v := healthyVisit(40)
	v.BMI = 31
	v.HeartRate = 95
	v.SystolicBP = 150
	v.SmokingStatus = "Current smoker"
	v.Hyperlipidemia = true
	v.Diabetes = true

	tips := PreventiveTips(v, DefaultThresholds())
	require.Equal(t, []string{TipBMI, TipHeartRate, TipBloodPressure, TipSmoking, TipHyperlipidemia, TipDiabetes}, codes(tips))
}

func TestNoActionTip(t *testing.T) {
	tips := PreventiveTips(healthyVisit(90), DefaultThresholds())
	require.Equal(t, []string{TipNoAction}, codes(tips))
}

func TestSmokingPrefixIsCaseInsensitive(t *testing.T) {
	th := DefaultThresholds()
	for status, want := range map[string]bool{
		"Current smoker":      true,
		"CURRENT every day":   true,
		" current some days ": true,
		"Former":              false,
		"Never":               false,
		"Not current":         false,
	} {
		v := healthyVisit(90)
		v.SmokingStatus = status
		require.Equal(t, want, hasTip(PreventiveTips(v, th), TipSmoking), status)
	}
}

func TestDiastolicCheckIsConfigurable(t *testing.T) {
	v := healthyVisit(90)
	v.DiastolicBP = 88

	th := DefaultThresholds()
	require.True(t, hasTip(PreventiveTips(v, th), TipBloodPressure))

	th.CheckDiastolic = false
	require.False(t, hasTip(PreventiveTips(v, th), TipBloodPressure))
}

func TestMissingColumnsDoNotFire(t *testing.T) {
	v := healthyVisit(90)
	v.BMI = 0
	v.HeartRate = 0
	v.Missing = []string{models.ColBMI, models.ColHeartRate}

	require.Equal(t, []string{TipNoAction}, codes(PreventiveTips(v, DefaultThresholds())))
}

func TestAssessIsIdempotent(t *testing.T) {
	v := healthyVisit(55)
	v.BMI = 30
	v.Diabetes = true
	classifier := &stubClassifier{high: true, probs: []float64{0.2, 0.8}}
	engine := NewEngine(DefaultThresholds(), classifier)

	first := engine.Assess(context.Background(), v)
	second := engine.Assess(context.Background(), v)
	require.Equal(t, first, second)
	require.Equal(t, 2, classifier.calls, "one scoring per assessment")
	require.Equal(t, []string{TipBMI, TipDiabetes}, codes(first.PreventiveTips))
}

func TestAssessWithModel(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), &stubClassifier{high: true, probs: []float64{0.125, 0.875}})

	a := engine.Assess(context.Background(), healthyVisit(50))
	require.Equal(t, models.BandHigh, a.RiskBand)
	require.Equal(t, ColorRed, a.BandColor)
	require.True(t, a.Prediction.Available())
	require.True(t, a.Prediction.HighRisk)
	require.Equal(t, 87.5, a.Prediction.ConfidencePct)
	require.Equal(t, models.ConsistencyConfirmedRisk, a.Consistency.Flag)
}

func TestConfidenceUsesPredictedClass(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), &stubClassifier{high: false, probs: []float64{0.7, 0.3}})

	a := engine.Assess(context.Background(), healthyVisit(90))
	require.Equal(t, 70.0, a.Prediction.ConfidencePct)
	require.Equal(t, models.ConsistencyAligned, a.Consistency.Flag)
}

func TestAssessWithoutModel(t *testing.T) {
	a := NewEngine(DefaultThresholds(), nil).Assess(context.Background(), healthyVisit(72))

	require.Equal(t, models.BandMedium, a.RiskBand)
	require.NotEmpty(t, a.PreventiveTips)
	require.Equal(t, models.PredictionUnavailable, a.Prediction.Status)
	require.Contains(t, a.Prediction.Reason, "model unavailable")
	require.Equal(t, models.ConsistencyUnavailable, a.Consistency.Flag)
}

func TestAssessDegradesOnClassifierFailure(t *testing.T) {
	cases := map[string]*stubClassifier{
		"error":        {err: errors.New("category 'Occasional' not seen")},
		"panic":        {panic: true},
		"short vector": {high: true, probs: []float64{0.9}},
		"out of range": {high: true, probs: []float64{-0.5, 1.5}},
	}
	for name, classifier := range cases {
		t.Run(name, func(t *testing.T) {
			var a models.RiskAssessment
			require.NotPanics(t, func() {
				a = NewEngine(DefaultThresholds(), classifier).Assess(context.Background(), healthyVisit(85))
			})
			require.Equal(t, models.BandLow, a.RiskBand)
			require.Equal(t, []string{TipNoAction}, codes(a.PreventiveTips))
			require.False(t, a.Prediction.Available())
			require.NotEmpty(t, a.Prediction.Reason)
		})
	}
}

func TestReconcileTable(t *testing.T) {
	available := func(high bool) models.ModelPrediction {
		return models.ModelPrediction{Status: models.PredictionAvailable, HighRisk: high}
	}
	cases := []struct {
		band models.RiskBand
		high bool
		flag models.ConsistencyFlag
	}{
		{models.BandLow, false, models.ConsistencyAligned},
		{models.BandHigh, true, models.ConsistencyConfirmedRisk},
		{models.BandLow, true, models.ConsistencyMismatchHighScoreRisk},
		{models.BandHigh, false, models.ConsistencyMismatchLowScoreLow},
		{models.BandMedium, true, models.ConsistencyNeutral},
		{models.BandMedium, false, models.ConsistencyNeutral},
	}
	for _, tc := range cases {
		require.Equal(t, tc.flag, Reconcile(tc.band, available(tc.high)).Flag, "%s/%v", tc.band, tc.high)
	}
}

func TestMiddleBandHighPredictionIsNeutral(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), &stubClassifier{high: true, probs: []float64{0.1, 0.9}})

	var a models.RiskAssessment
	require.NotPanics(t, func() { a = engine.Assess(context.Background(), healthyVisit(70)) })
	require.Equal(t, models.ConsistencyNeutral, a.Consistency.Flag)
	require.Empty(t, a.Consistency.Message)
}

func TestStoredRiskLevelMismatchWarning(t *testing.T) {
	v := healthyVisit(90)
	v.StoredRiskLevel = "High"

	a := NewEngine(DefaultThresholds(), nil).Assess(context.Background(), v)
	require.Equal(t, models.BandLow, a.RiskBand)
	require.Len(t, a.DataQualityWarnings, 1)

	v.StoredRiskLevel = "low"
	a = NewEngine(DefaultThresholds(), nil).Assess(context.Background(), v)
	require.Empty(t, a.DataQualityWarnings)
}

func TestLoadThresholds(t *testing.T) {
	th, err := LoadThresholds("")
	require.NoError(t, err)
	require.Equal(t, DefaultThresholds(), th)

	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("low_risk_min_score: 85\nmedium_risk_min_score: 70\ncheck_diastolic: false\n"), 0o644))
	th, err = LoadThresholds(path)
	require.NoError(t, err)
	require.Equal(t, 85.0, th.LowRiskMinScore)
	require.Equal(t, 70.0, th.MediumRiskMinScore)
	require.False(t, th.CheckDiastolic)
	require.Equal(t, 18.5, th.BMIMin)

	require.NoError(t, os.WriteFile(path, []byte("low_risk_min_score: 50\nmedium_risk_min_score: 60\n"), 0o644))
	_, err = LoadThresholds(path)
	require.Error(t, err)
}

func hasTip(tips []models.Tip, code string) bool {
	for _, tip := range tips {
		if tip.Code == code {
			return true
		}
	}
	return false
}

func codes(tips []models.Tip) []string {
	out := make([]string, 0, len(tips))
	for _, tip := range tips {
		out = append(out, tip.Code)
	}
	return out
}
