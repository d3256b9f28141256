package risk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Thresholds centralizes every cutoff the engine uses.
type Thresholds struct {
	// LowRiskMinScore is the smallest health score banded Low.
	LowRiskMinScore float64 `yaml:"low_risk_min_score" json:"low_risk_min_score"`
	// MediumRiskMinScore is the smallest health score banded Medium.
	MediumRiskMinScore float64 `yaml:"medium_risk_min_score" json:"medium_risk_min_score"`

	BMIMin         float64 `yaml:"bmi_min" json:"bmi_min"`
	BMIMax         float64 `yaml:"bmi_max" json:"bmi_max"`
	HeartRateMax   int     `yaml:"heart_rate_max" json:"heart_rate_max"`
	SystolicMax    int     `yaml:"systolic_max" json:"systolic_max"`
	DiastolicMax   int     `yaml:"diastolic_max" json:"diastolic_max"`
	CheckDiastolic bool    `yaml:"check_diastolic" json:"check_diastolic"`
}

// DefaultThresholds uses the 80/60 health-score convention.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowRiskMinScore:    80,
		MediumRiskMinScore: 60,
		BMIMin:             18.5,
		BMIMax:             25,
		HeartRateMax:       90,
		SystolicMax:        130,
		DiastolicMax:       85,
		CheckDiastolic:     true,
	}
}

// ConservativeThresholds uses the 85/70 health-score convention.
func ConservativeThresholds() Thresholds {
	t := DefaultThresholds()
	t.LowRiskMinScore = 85
	t.MediumRiskMinScore = 70
	return t
}

func (t Thresholds) Validate() error {
	if t.MediumRiskMinScore < 0 || t.LowRiskMinScore > 100 {
		return errors.New("score thresholds must lie within [0,100]")
	}
	if t.MediumRiskMinScore >= t.LowRiskMinScore {
		return fmt.Errorf("medium_risk_min_score %v must be below low_risk_min_score %v",
			t.MediumRiskMinScore, t.LowRiskMinScore)
	}
	if t.BMIMin <= 0 || t.BMIMin >= t.BMIMax {
		return fmt.Errorf("invalid bmi range [%v, %v]", t.BMIMin, t.BMIMax)
	}
	if t.HeartRateMax <= 0 || t.SystolicMax <= 0 || t.DiastolicMax <= 0 {
		return errors.New("vital thresholds must be positive")
	}
	return nil
}

// LoadThresholds reads a YAML file over the defaults; fields the file omits
// keep their default values. An empty path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(content, &t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
