package risk

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/models"
)

const (
	TipBMI            = "bmi"
	TipHeartRate      = "heart_rate"
	TipBloodPressure  = "blood_pressure"
	TipSmoking        = "smoking"
	TipHyperlipidemia = "hyperlipidemia"
	TipDiabetes       = "diabetes"
	TipNoAction       = "no_action"
)

// rule is one independent threshold check. Rules are evaluated in slice order
// and every rule that fires contributes a tip.
type rule struct {
	code    string
	columns []string
	fires   func(models.Visit, Thresholds) bool
	message func(Thresholds) string
}

var rules = []rule{
	{
		code:    TipBMI,
		columns: []string{models.ColBMI},
		fires: func(v models.Visit, t Thresholds) bool {
			return v.BMI < t.BMIMin || v.BMI > t.BMIMax
		},
		message: func(t Thresholds) string {
			return fmt.Sprintf("BMI is outside the healthy range (%.1f-%.1f). Aim for a balanced diet and regular exercise.", t.BMIMin, t.BMIMax)
		},
	},
	{
		code:    TipHeartRate,
		columns: []string{models.ColHeartRate},
		fires: func(v models.Visit, t Thresholds) bool {
			return v.HeartRate > t.HeartRateMax
		},
		message: func(t Thresholds) string {
			return fmt.Sprintf("Resting heart rate is above %d bpm. Manage stress and add regular cardio exercise.", t.HeartRateMax)
		},
	},
	{
		code:    TipBloodPressure,
		columns: []string{models.ColSystolicBP},
		fires: func(v models.Visit, t Thresholds) bool {
			if v.Has(models.ColSystolicBP) && v.SystolicBP > t.SystolicMax {
				return true
			}
			return t.CheckDiastolic && v.Has(models.ColDiastolicBP) && v.DiastolicBP > t.DiastolicMax
		},
		message: func(t Thresholds) string {
			return "Blood pressure is elevated. Cut down on sodium and monitor your blood pressure regularly."
		},
	},
	{
		code:    TipSmoking,
		columns: []string{models.ColSmokingStatus},
		fires: func(v models.Visit, t Thresholds) bool {
			return strings.HasPrefix(strings.ToLower(strings.TrimSpace(v.SmokingStatus)), "current")
		},
		message: func(Thresholds) string {
			return "Quitting smoking lowers heart disease risk substantially. Ask your doctor about cessation support."
		},
	},
	{
		code:    TipHyperlipidemia,
		columns: []string{models.ColHyperlipidemia},
		fires: func(v models.Visit, t Thresholds) bool {
			return v.Hyperlipidemia
		},
		message: func(Thresholds) string {
			return "High cholesterol recorded. Follow a low saturated-fat diet and discuss statin therapy with your doctor."
		},
	},
	{
		code:    TipDiabetes,
		columns: []string{models.ColDiabetes},
		fires: func(v models.Visit, t Thresholds) bool {
			return v.Diabetes
		},
		message: func(Thresholds) string {
			return "Diabetes recorded. Monitor your blood glucose regularly and keep follow-up appointments."
		},
	},
}

const noActionMessage = "Your vitals are within healthy ranges. No immediate action needed."

// PreventiveTips evaluates every rule against the visit. A rule whose input
// column was coerced to null does not fire; the blood pressure rule needs only
// one of its two readings.
func PreventiveTips(v models.Visit, t Thresholds) []models.Tip {
	var tips []models.Tip
	for _, r := range rules {
		if r.code != TipBloodPressure && !hasAll(v, r.columns) {
			continue
		}
		if r.fires(v, t) {
			tips = append(tips, models.Tip{Code: r.code, Message: r.message(t)})
		}
	}
	if len(tips) == 0 {
		tips = append(tips, models.Tip{Code: TipNoAction, Message: noActionMessage})
	}
	return tips
}

func hasAll(v models.Visit, columns []string) bool {
	for _, c := range columns {
		if !v.Has(c) {
			return false
		}
	}
	return true
}
