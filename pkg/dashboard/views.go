package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/risk"
)

const dateLayout = "2006-01-02"

const noVisitsMessage = "No visits recorded for this patient yet."

type PatientCard struct {
	PatientID     string  `json:"patient_id"`
	Date          string  `json:"date"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	SmokingStatus string  `json:"smoking_status"`
}

// MetricTile is one labelled value of the health metrics panel. Value is
// empty when the column was null for the visit.
type MetricTile struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Color string `json:"color,omitempty"`
}

// Gauge is a value on a fixed 0..Max ring.
type Gauge struct {
	Value    float64 `json:"value"`
	Max      float64 `json:"max"`
	Fraction float64 `json:"fraction"`
	Color    string  `json:"color"`
}

type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type OverviewView struct {
	PatientID  string                 `json:"patient_id"`
	VisitCount int                    `json:"visit_count"`
	Card       *PatientCard           `json:"card,omitempty"`
	Tiles      []MetricTile           `json:"tiles,omitempty"`
	Gauge      *Gauge                 `json:"gauge,omitempty"`
	Trend      []SeriesPoint          `json:"health_score_trend,omitempty"`
	Assessment *models.RiskAssessment `json:"assessment,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	EmptyState string                 `json:"empty_state,omitempty"`
}

type Metric string

const (
	MetricHealthScore Metric = "health_score"
	MetricBMI         Metric = "bmi"
	MetricWeight      Metric = "weight_kg"
	MetricSystolic    Metric = "systolic_bp"
	MetricDiastolic   Metric = "diastolic_bp"
	MetricHeartRate   Metric = "heart_rate"
)

// Metrics lists the selectable history metrics in display order.
var Metrics = []Metric{MetricHealthScore, MetricBMI, MetricWeight, MetricSystolic, MetricDiastolic, MetricHeartRate}

type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
	ChartArea ChartKind = "area"
)

var ChartKinds = []ChartKind{ChartLine, ChartBar, ChartArea}

// ParseMetric accepts a metric key; empty selects the health score.
func ParseMetric(raw string) (Metric, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return MetricHealthScore, nil
	}
	for _, m := range Metrics {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidSelection, raw)
}

// ParseChart accepts a chart kind; empty selects a line chart.
func ParseChart(raw string) (ChartKind, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ChartLine, nil
	}
	for _, c := range ChartKinds {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown chart %q", ErrInvalidSelection, raw)
}

func (m Metric) column() string {
	return string(m)
}

func (m Metric) value(v models.Visit) float64 {
	switch m {
	case MetricBMI:
		return v.BMI
	case MetricWeight:
		return v.WeightKg
	case MetricSystolic:
		return float64(v.SystolicBP)
	case MetricDiastolic:
		return float64(v.DiastolicBP)
	case MetricHeartRate:
		return float64(v.HeartRate)
	default:
		return v.HealthScore
	}
}

type VisitDetail struct {
	Date           string          `json:"date"`
	HeightCm       *float64        `json:"height_cm,omitempty"`
	WeightKg       *float64        `json:"weight_kg,omitempty"`
	BMI            *float64        `json:"bmi,omitempty"`
	BloodPressure  string          `json:"blood_pressure,omitempty"`
	HeartRate      *int            `json:"heart_rate,omitempty"`
	SmokingStatus  string          `json:"smoking_status"`
	Diabetes       *bool           `json:"diabetes,omitempty"`
	Hyperlipidemia *bool           `json:"hyperlipidemia,omitempty"`
	HealthScore    float64         `json:"health_score"`
	RiskBand       models.RiskBand `json:"risk_band"`
	BandColor      string          `json:"band_color"`
	Missing        []string        `json:"missing,omitempty"`
}

type HistoryView struct {
	PatientID  string        `json:"patient_id"`
	Metric     Metric        `json:"metric"`
	Chart      ChartKind     `json:"chart"`
	Metrics    []Metric      `json:"metrics"`
	Charts     []ChartKind   `json:"charts"`
	Points     []SeriesPoint `json:"points"`
	Visits     []VisitDetail `json:"visits"`
	EmptyState string        `json:"empty_state,omitempty"`
}

func patientCard(v models.Visit) *PatientCard {
	return &PatientCard{
		PatientID:     v.PatientID,
		Date:          v.Date.Format(dateLayout),
		HeightCm:      v.HeightCm,
		WeightKg:      v.WeightKg,
		SmokingStatus: v.SmokingStatus,
	}
}

func metricTiles(v models.Visit, a models.RiskAssessment) []MetricTile {
	bmi := ""
	if v.Has(models.ColBMI) {
		bmi = strconv.FormatFloat(v.BMI, 'f', 1, 64)
	}
	bp := ""
	if v.Has(models.ColSystolicBP) && v.Has(models.ColDiastolicBP) {
		bp = fmt.Sprintf("%d/%d", v.SystolicBP, v.DiastolicBP)
	}
	hr := ""
	if v.Has(models.ColHeartRate) {
		hr = strconv.Itoa(v.HeartRate)
	}
	return []MetricTile{
		{Key: models.ColBMI, Label: "BMI", Value: bmi},
		{Key: "blood_pressure", Label: "Blood Pressure", Value: bp, Unit: "mmHg"},
		{Key: models.ColHeartRate, Label: "Heart Rate", Value: hr, Unit: "bpm"},
		{Key: models.ColRiskLevel, Label: "Risk Level", Value: string(a.RiskBand), Color: a.BandColor},
	}
}

func healthGauge(score float64, color string) *Gauge {
	const gaugeMax = 100.0
	fraction := score / gaugeMax
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return &Gauge{Value: score, Max: gaugeMax, Fraction: fraction, Color: color}
}

func series(visits []models.Visit, m Metric) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(visits))
	for _, v := range visits {
		if !v.Has(m.column()) {
			continue
		}
		points = append(points, SeriesPoint{Date: v.Date.Format(dateLayout), Value: m.value(v)})
	}
	return points
}

// visitDetail leaves columns the vitals policy nulled out unset.
func visitDetail(v models.Visit, th risk.Thresholds) VisitDetail {
	band := th.BandFor(v.HealthScore)
	d := VisitDetail{
		Date:          v.Date.Format(dateLayout),
		SmokingStatus: v.SmokingStatus,
		HealthScore:   v.HealthScore,
		RiskBand:      band,
		BandColor:     risk.BandColor(band),
		Missing:       v.Missing,
	}
	if v.Has(models.ColHeightCm) {
		d.HeightCm = &v.HeightCm
	}
	if v.Has(models.ColWeightKg) {
		d.WeightKg = &v.WeightKg
	}
	if v.Has(models.ColBMI) {
		d.BMI = &v.BMI
	}
	if v.Has(models.ColSystolicBP) && v.Has(models.ColDiastolicBP) {
		d.BloodPressure = fmt.Sprintf("%d/%d", v.SystolicBP, v.DiastolicBP)
	}
	if v.Has(models.ColHeartRate) {
		d.HeartRate = &v.HeartRate
	}
	if v.Has(models.ColDiabetes) {
		d.Diabetes = &v.Diabetes
	}
	if v.Has(models.ColHyperlipidemia) {
		d.Hyperlipidemia = &v.Hyperlipidemia
	}
	return d
}
