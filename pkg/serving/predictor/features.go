package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/models"
)

// Feature names of the model contract.
const (
	FeatureHeightCm       = "Height_cm"
	FeatureBMI            = "BMI"
	FeatureWeightKg       = "Weight_kg"
	FeatureDiastolicBP    = "Diastolic_BP"
	FeatureHeartRate      = "Heart_Rate"
	FeatureSystolicBP     = "Systolic_BP"
	FeatureDiabetes       = "Diabetes"
	FeatureHyperlipidemia = "Hyperlipidemia"
	FeatureSmokingStatus  = "Smoking_Status"
	FeatureAge            = "AGE"
	FeatureGender         = "GENDER"
)

// ContractFeatures is the base feature order; extended models append AGE and GENDER.
var ContractFeatures = []string{
	FeatureHeightCm,
	FeatureBMI,
	FeatureWeightKg,
	FeatureDiastolicBP,
	FeatureHeartRate,
	FeatureSystolicBP,
	FeatureDiabetes,
	FeatureHyperlipidemia,
	FeatureSmokingStatus,
}

var ErrModelUnavailable = errors.New("model unavailable")

// EncodingMismatchError reports a categorical value the model was not trained on.
// It matches ErrModelUnavailable under errors.Is.
type EncodingMismatchError struct {
	Feature string
	Value   string
}

func (e *EncodingMismatchError) Error() string {
	return fmt.Sprintf("feature %s: category %q not seen during training", e.Feature, e.Value)
}

func (e *EncodingMismatchError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// FeatureRow builds the raw single-row feature table for a visit. Columns that
// were coerced to null on load are left out, as are absent optional fields.
func FeatureRow(v models.Visit) map[string]interface{} {
	row := make(map[string]interface{}, len(ContractFeatures)+2)
	put := func(column, feature string, value interface{}) {
		if v.Has(column) {
			row[feature] = value
		}
	}
	put(models.ColHeightCm, FeatureHeightCm, v.HeightCm)
	put(models.ColBMI, FeatureBMI, v.BMI)
	put(models.ColWeightKg, FeatureWeightKg, v.WeightKg)
	put(models.ColDiastolicBP, FeatureDiastolicBP, float64(v.DiastolicBP))
	put(models.ColHeartRate, FeatureHeartRate, float64(v.HeartRate))
	put(models.ColSystolicBP, FeatureSystolicBP, float64(v.SystolicBP))
	put(models.ColDiabetes, FeatureDiabetes, v.Diabetes)
	put(models.ColHyperlipidemia, FeatureHyperlipidemia, v.Hyperlipidemia)
	put(models.ColSmokingStatus, FeatureSmokingStatus, v.SmokingStatus)
	if v.Age != nil && v.Has(models.ColAge) {
		row[FeatureAge] = float64(*v.Age)
	}
	if v.Gender != "" {
		row[FeatureGender] = v.Gender
	}
	return row
}

// encode maps a raw value to the model's numeric input. Categorical features
// accept either a known category or an already-encoded in-range code.
func encode(name string, value interface{}, categories []string) (float64, error) {
	if len(categories) > 0 {
		if s, ok := value.(string); ok {
			trimmed := strings.TrimSpace(s)
			for code, category := range categories {
				if category == trimmed {
					return float64(code), nil
				}
			}
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil && validCode(f, len(categories)) {
				return f, nil
			}
			return 0, &EncodingMismatchError{Feature: name, Value: trimmed}
		}
		f, err := toFloat(value)
		if err != nil || !validCode(f, len(categories)) {
			return 0, &EncodingMismatchError{Feature: name, Value: fmt.Sprint(value)}
		}
		return f, nil
	}

	f, err := toFloat(value)
	if err != nil {
		return 0, fmt.Errorf("%w: feature %s: %v", ErrModelUnavailable, name, err)
	}
	return f, nil
}

func validCode(f float64, n int) bool {
	return f == math.Trunc(f) && f >= 0 && int(f) < n
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
