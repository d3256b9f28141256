package dashboard

import (
	"context"
	"errors"

	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/records"
	"github.com/synaptica-ai/vitals/pkg/risk"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Records is the read side of the patient record store.
type Records interface {
	FindPatient(id string) ([]models.Visit, error)
	HasPatient(id string) bool
	PatientIDs() []string
}

// Service builds view models from the record store and the risk engine.
type Service struct {
	records Records
	engine  *risk.Engine
}

func NewService(store Records, engine *risk.Engine) *Service {
	return &Service{records: store, engine: engine}
}

func (s *Service) PatientIDs() []string {
	return s.records.PatientIDs()
}

// Overview assesses the patient's latest visit. A patient whose rows were all
// dropped gets an empty-state view instead of an error.
func (s *Service) Overview(ctx context.Context, patientID string) (OverviewView, error) {
	view := OverviewView{PatientID: patientID}

	visits, err := s.records.FindPatient(patientID)
	if err != nil {
		if errors.Is(err, records.ErrNoVisits) {
			view.EmptyState = noVisitsMessage
			return view, nil
		}
		return view, err
	}

	latest := visits[len(visits)-1]
	assessment := s.engine.Assess(ctx, latest)

	view.PatientID = latest.PatientID
	view.VisitCount = len(visits)
	view.Card = patientCard(latest)
	view.Tiles = metricTiles(latest, assessment)
	view.Gauge = healthGauge(assessment.HealthScore, assessment.BandColor)
	view.Trend = series(visits, MetricHealthScore)
	view.Assessment = &assessment
	view.Warnings = append(view.Warnings, assessment.DataQualityWarnings...)
	if !assessment.Prediction.Available() {
		view.Warnings = append(view.Warnings,
			"Model prediction unavailable, showing health-score assessment only: "+assessment.Prediction.Reason)
	}
	return view, nil
}

// History lays out every visit of the patient with one selected metric.
func (s *Service) History(ctx context.Context, patientID string, metric Metric, chart ChartKind) (HistoryView, error) {
	view := HistoryView{
		PatientID: patientID,
		Metric:    metric,
		Chart:     chart,
		Metrics:   Metrics,
		Charts:    ChartKinds,
		Points:    []SeriesPoint{},
		Visits:    []VisitDetail{},
	}

	visits, err := s.records.FindPatient(patientID)
	if err != nil {
		if errors.Is(err, records.ErrNoVisits) {
			view.EmptyState = noVisitsMessage
			return view, nil
		}
		return view, err
	}

	th := s.engine.Thresholds()
	view.PatientID = visits[0].PatientID
	view.Points = series(visits, metric)
	for _, v := range visits {
		view.Visits = append(view.Visits, visitDetail(v, th))
	}
	return view, nil
}
