package records

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/logger"
	"github.com/synaptica-ai/vitals/pkg/common/models"
)

type Options struct {
	Policy VitalsPolicy
	// BandFor, when set, is used to flag stored risk levels that disagree with
	// the band derived from the health score.
	BandFor func(score float64) models.RiskBand
}

type DroppedRow struct {
	Row       int    `json:"row"`
	PatientID string `json:"patient_id,omitempty"`
	Reason    string `json:"reason"`
}

type LoadReport struct {
	Source   string       `json:"source"`
	Rows     int          `json:"rows"`
	Loaded   int          `json:"loaded"`
	Dropped  []DroppedRow `json:"dropped,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Store is an immutable, indexed view of the visit dataset. It is safe for
// concurrent readers once built.
type Store struct {
	visits map[string][]models.Visit
	known  map[string]struct{}
	ids    []string
}

// build indexes a header row and data rows into a Store.
func build(source string, table [][]string, opts Options) (*Store, LoadReport, error) {
	report := LoadReport{Source: source}
	if len(table) == 0 {
		return nil, report, loadError(source, errEmptySource)
	}

	idx := columnIndex(table[0])
	if missing := missingColumns(idx); len(missing) > 0 {
		return nil, report, loadError(source, fmt.Errorf("%w: %s", errMissingColumn, strings.Join(missing, ", ")))
	}

	policy := opts.Policy
	if policy == "" {
		policy = PolicyDrop
	}
	parser := rowParser{idx: idx, policy: policy}

	store := &Store{
		visits: make(map[string][]models.Visit),
		known:  make(map[string]struct{}),
	}

	for i, row := range table[1:] {
		if isBlank(row) {
			continue
		}
		rowNum := i + 1
		report.Rows++

		visit, reason := parser.parse(row, rowNum)
		if visit.PatientID != "" {
			store.known[visit.PatientID] = struct{}{}
		}
		if reason != "" {
			report.Dropped = append(report.Dropped, DroppedRow{Row: rowNum, PatientID: visit.PatientID, Reason: reason})
			continue
		}

		if opts.BandFor != nil && visit.StoredRiskLevel != "" {
			derived := opts.BandFor(visit.HealthScore)
			if !strings.EqualFold(visit.StoredRiskLevel, string(derived)) {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"row %d: stored risk level %q disagrees with derived band %q", rowNum, visit.StoredRiskLevel, derived))
			}
		}

		store.visits[visit.PatientID] = append(store.visits[visit.PatientID], visit)
		report.Loaded++
	}

	for id := range store.known {
		store.ids = append(store.ids, id)
	}
	sort.Strings(store.ids)

	for id, visits := range store.visits {
		sort.SliceStable(visits, func(a, b int) bool {
			return visits[a].Date.Before(visits[b].Date)
		})
		store.visits[id] = visits
	}

	logger.Log.WithFields(map[string]interface{}{
		"source":   source,
		"rows":     report.Rows,
		"loaded":   report.Loaded,
		"dropped":  len(report.Dropped),
		"patients": len(store.ids),
	}).Info("Dataset loaded")

	return store, report, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// FindPatient returns a copy of the patient's visits sorted ascending by date,
// ties kept in source row order.
func (s *Store) FindPatient(id string) ([]models.Visit, error) {
	key := CanonicalID(id)
	if _, ok := s.known[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}
	visits := s.visits[key]
	if len(visits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVisits, id)
	}
	out := make([]models.Visit, len(visits))
	copy(out, visits)
	return out, nil
}

// LatestVisit returns the chronologically last visit; on equal dates the later
// source row wins.
func (s *Store) LatestVisit(id string) (models.Visit, error) {
	visits, err := s.FindPatient(id)
	if err != nil {
		return models.Visit{}, err
	}
	return visits[len(visits)-1], nil
}

func (s *Store) HasPatient(id string) bool {
	_, ok := s.known[CanonicalID(id)]
	return ok
}

func (s *Store) PatientIDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Store) VisitCount() int {
	var n int
	for _, v := range s.visits {
		n += len(v)
	}
	return n
}
