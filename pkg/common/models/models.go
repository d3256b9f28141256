package models

import (
	"time"

	"github.com/google/uuid"
)

// Canonical dataset columns. Column-name variants are normalized to these at the
// loading boundary.
const (
	ColPatientID      = "patient_id"
	ColDate           = "date"
	ColHeightCm       = "height_cm"
	ColWeightKg       = "weight_kg"
	ColBMI            = "bmi"
	ColSystolicBP     = "systolic_bp"
	ColDiastolicBP    = "diastolic_bp"
	ColHeartRate      = "heart_rate"
	ColSmokingStatus  = "smoking_status"
	ColDiabetes       = "diabetes"
	ColHyperlipidemia = "hyperlipidemia"
	ColHealthScore    = "health_score"
	ColRiskLevel      = "risk_level"
	ColHeartDisease   = "heart_disease"
	ColAge            = "age"
	ColGender         = "gender"
)

// Visit is one dated row of observed vitals for a patient.
type Visit struct {
	PatientID       string    `json:"patient_id"`
	Date            time.Time `json:"date"`
	HeightCm        float64   `json:"height_cm"`
	WeightKg        float64   `json:"weight_kg"`
	BMI             float64   `json:"bmi"`
	SystolicBP      int       `json:"systolic_bp"`
	DiastolicBP     int       `json:"diastolic_bp"`
	HeartRate       int       `json:"heart_rate"`
	SmokingStatus   string    `json:"smoking_status"`
	Diabetes        bool      `json:"diabetes"`
	Hyperlipidemia  bool      `json:"hyperlipidemia"`
	HealthScore     float64   `json:"health_score"`
	StoredRiskLevel string    `json:"stored_risk_level,omitempty"`
	HeartDisease    *bool     `json:"heart_disease,omitempty"`
	Age             *int      `json:"age,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	// Row is the 1-based data row in the source; it breaks date ties.
	Row int `json:"row"`
	// Missing lists canonical columns that were coerced to null on load.
	Missing []string `json:"missing,omitempty"`
}

// Has reports whether column was present and valid for this visit.
func (v Visit) Has(column string) bool {
	for _, m := range v.Missing {
		if m == column {
			return false
		}
	}
	return true
}

type RiskBand string

const (
	BandLow    RiskBand = "Low"
	BandMedium RiskBand = "Medium"
	BandHigh   RiskBand = "High"
)

type PredictionStatus string

const (
	PredictionAvailable   PredictionStatus = "available"
	PredictionUnavailable PredictionStatus = "unavailable"
)

// ModelPrediction is the classifier's part of an assessment.
type ModelPrediction struct {
	Status        PredictionStatus `json:"status"`
	HighRisk      bool             `json:"high_risk"`
	ConfidencePct float64          `json:"confidence_pct"`
	Probabilities []float64        `json:"probabilities,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}

func (p ModelPrediction) Available() bool {
	return p.Status == PredictionAvailable
}

type Tip struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConsistencyFlag string

const (
	ConsistencyAligned               ConsistencyFlag = "aligned"
	ConsistencyConfirmedRisk         ConsistencyFlag = "confirmed_risk"
	ConsistencyMismatchHighScoreRisk ConsistencyFlag = "mismatch_high_score_high_risk"
	ConsistencyMismatchLowScoreLow   ConsistencyFlag = "mismatch_low_score_low_risk"
	ConsistencyNeutral               ConsistencyFlag = "neutral"
	ConsistencyUnavailable           ConsistencyFlag = "unavailable"
)

type Consistency struct {
	Flag    ConsistencyFlag `json:"flag"`
	Message string          `json:"message,omitempty"`
}

// RiskAssessment is computed per visit on demand and never stored.
type RiskAssessment struct {
	PatientID           string          `json:"patient_id"`
	VisitDate           time.Time       `json:"visit_date"`
	HealthScore         float64         `json:"health_score"`
	RiskBand            RiskBand        `json:"risk_band"`
	BandColor           string          `json:"band_color"`
	Prediction          ModelPrediction `json:"prediction"`
	PreventiveTips      []Tip           `json:"preventive_tips"`
	Consistency         Consistency     `json:"consistency"`
	DataQualityWarnings []string        `json:"data_quality_warnings,omitempty"`
}

// Appointment is one entry of the append-only appointment log.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`
	Doctor    string    `json:"doctor"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // appointment_booked
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Model serving wire types
type PredictionRequest struct {
	PatientID string                 `json:"patient_id,omitempty"`
	ModelName string                 `json:"model_name,omitempty"`
	Features  map[string]interface{} `json:"features"`
}

type PredictionResponse struct {
	PatientID     string        `json:"patient_id,omitempty"`
	HighRisk      bool          `json:"high_risk"`
	Probabilities []float64     `json:"probabilities"`
	Confidence    float64       `json:"confidence"`
	ModelVersion  string        `json:"model_version"`
	Latency       time.Duration `json:"latency"`
}
