package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/vitals/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	PatientID string            `gorm:"column:patient_id;index"`
	Doctor    string            `gorm:"column:doctor"`
	Date      datatypes.Date    `gorm:"column:date"`
	Notes     string            `gorm:"column:notes"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (appointmentModel) TableName() string {
	return "appointments"
}

// Repository is the Postgres copy of the appointment log.
type Repository struct {
	db     *gorm.DB
	origin string
}

func NewRepository(db *gorm.DB, origin string) *Repository {
	return &Repository{db: db, origin: origin}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&appointmentModel{})
}

func (r *Repository) Name() string { return "postgres" }

// Append inserts the appointment; re-delivered appointments are ignored.
func (r *Repository) Append(ctx context.Context, appt models.Appointment) error {
	row := appointmentModel{
		ID:        appt.ID,
		PatientID: appt.PatientID,
		Doctor:    appt.Doctor,
		Date:      datatypes.Date(appt.Date),
		Notes:     appt.Notes,
		Metadata:  datatypes.JSONMap{"origin": r.origin},
		CreatedAt: appt.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}
