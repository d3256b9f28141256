package serving

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog records one scored request of the serving service.
type PredictionLog struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	PatientID     string            `gorm:"column:patient_id;index"`
	ModelVersion  string            `gorm:"column:model_version"`
	Features      datatypes.JSONMap `gorm:"column:features"`
	HighRisk      bool              `gorm:"column:high_risk"`
	Probabilities datatypes.JSON    `gorm:"column:probabilities"`
	Confidence    float64           `gorm:"column:confidence"`
	LatencyMs     float64           `gorm:"column:latency_ms"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
}

func (PredictionLog) TableName() string {
	return "prediction_logs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error {
	raw, err := json.Marshal(resp.Probabilities)
	if err != nil {
		return err
	}

	log := PredictionLog{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		ModelVersion:  resp.ModelVersion,
		Features:      datatypes.JSONMap(req.Features),
		HighRisk:      resp.HighRisk,
		Probabilities: datatypes.JSON(raw),
		Confidence:    resp.Confidence,
		LatencyMs:     float64(resp.Latency.Microseconds()) / 1000.0,
		CreatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
