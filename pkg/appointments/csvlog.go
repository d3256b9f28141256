package appointments

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/synaptica-ai/vitals/pkg/common/models"
)

var csvHeader = []string{"Appointment_ID", "Patient_ID", "Doctor", "Date", "Notes", "Created_At"}

// CSVLog appends appointments to a local CSV file, writing the header when
// the file is new. Writers in other processes may interleave lines.
type CSVLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &CSVLog{path: path}, nil
}

func (c *CSVLog) Name() string { return "csv" }

func (c *CSVLog) Append(ctx context.Context, appt models.Appointment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(filepath.Clean(c.path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open appointment log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		appt.ID.String(),
		appt.PatientID,
		appt.Doctor,
		appt.Date.Format(dateLayout),
		appt.Notes,
		appt.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
