package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/vitals/pkg/common/models"
)

// VitalsPolicy decides what happens to a row whose numeric vital or boolean
// flag cannot be parsed.
type VitalsPolicy string

const (
	// PolicyDrop drops the row.
	PolicyDrop VitalsPolicy = "drop"
	// PolicyNull keeps the row and records the column in Visit.Missing.
	PolicyNull VitalsPolicy = "null"
)

func ParsePolicy(raw string) (VitalsPolicy, error) {
	switch VitalsPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyNull:
		return PolicyNull, nil
	default:
		return "", fmt.Errorf("unknown vitals policy %q", raw)
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CanonicalID normalizes a patient identifier so numeric and string forms of
// the same ID compare equal: "101", " 101 " and "101.0" all become "101".
func CanonicalID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(id, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return id
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func parsePositive(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0, false
	}
	return f, true
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "no", "n", "0.0":
		return false, true
	case "1", "true", "yes", "y", "1.0":
		return true, true
	}
	return false, false
}

// rowParser turns one data row into a Visit according to the column policy.
type rowParser struct {
	idx    map[string]int
	policy VitalsPolicy
}

func (p rowParser) cell(row []string, column string) (string, bool) {
	i, ok := p.idx[column]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// parse returns the visit, or a non-empty drop reason.
func (p rowParser) parse(row []string, rowNum int) (models.Visit, string) {
	v := models.Visit{Row: rowNum}

	rawID, _ := p.cell(row, models.ColPatientID)
	v.PatientID = CanonicalID(rawID)
	if v.PatientID == "" {
		return v, "empty patient id"
	}

	rawDate, _ := p.cell(row, models.ColDate)
	date, err := parseDate(rawDate)
	if err != nil {
		return v, err.Error()
	}
	v.Date = date

	rawScore, _ := p.cell(row, models.ColHealthScore)
	score, err := strconv.ParseFloat(strings.TrimSpace(rawScore), 64)
	if err != nil || math.IsNaN(score) {
		return v, fmt.Sprintf("unparseable health score %q", rawScore)
	}
	if score < 0 || score > 100 {
		return v, fmt.Sprintf("health score %v outside [0,100]", score)
	}
	v.HealthScore = score

	numeric := []struct {
		column string
		assign func(float64)
	}{
		{models.ColHeightCm, func(f float64) { v.HeightCm = f }},
		{models.ColWeightKg, func(f float64) { v.WeightKg = f }},
		{models.ColSystolicBP, func(f float64) { v.SystolicBP = int(math.Round(f)) }},
		{models.ColDiastolicBP, func(f float64) { v.DiastolicBP = int(math.Round(f)) }},
		{models.ColHeartRate, func(f float64) { v.HeartRate = int(math.Round(f)) }},
	}
	for _, n := range numeric {
		raw, _ := p.cell(row, n.column)
		f, ok := parsePositive(raw)
		if !ok {
			if reason := p.reject(&v, n.column, raw); reason != "" {
				return v, reason
			}
			continue
		}
		n.assign(f)
	}

	rawBMI, present := p.cell(row, models.ColBMI)
	if bmi, ok := parsePositive(rawBMI); ok {
		v.BMI = bmi
	} else if (!present || strings.TrimSpace(rawBMI) == "") && v.Has(models.ColHeightCm) && v.Has(models.ColWeightKg) {
		m := v.HeightCm / 100
		v.BMI = math.Round(v.WeightKg/(m*m)*10) / 10
	} else if reason := p.reject(&v, models.ColBMI, rawBMI); reason != "" {
		return v, reason
	}

	flags := []struct {
		column string
		assign func(bool)
	}{
		{models.ColDiabetes, func(b bool) { v.Diabetes = b }},
		{models.ColHyperlipidemia, func(b bool) { v.Hyperlipidemia = b }},
	}
	for _, f := range flags {
		raw, _ := p.cell(row, f.column)
		b, ok := parseBool(raw)
		if !ok {
			if reason := p.reject(&v, f.column, raw); reason != "" {
				return v, reason
			}
			continue
		}
		f.assign(b)
	}

	smoking, _ := p.cell(row, models.ColSmokingStatus)
	v.SmokingStatus = strings.TrimSpace(smoking)

	if raw, ok := p.cell(row, models.ColRiskLevel); ok {
		v.StoredRiskLevel = strings.TrimSpace(raw)
	}
	if raw, ok := p.cell(row, models.ColHeartDisease); ok && strings.TrimSpace(raw) != "" {
		if b, ok := parseBool(raw); ok {
			v.HeartDisease = &b
		}
	}
	if raw, ok := p.cell(row, models.ColAge); ok && strings.TrimSpace(raw) != "" {
		if f, ok := parsePositive(raw); ok {
			age := int(f)
			v.Age = &age
		} else if reason := p.reject(&v, models.ColAge, raw); reason != "" {
			return v, reason
		}
	}
	if raw, ok := p.cell(row, models.ColGender); ok {
		v.Gender = strings.TrimSpace(raw)
	}

	return v, ""
}

// reject applies the vitals policy to a bad cell. It returns a drop reason
// under PolicyDrop and records the column as missing under PolicyNull.
func (p rowParser) reject(v *models.Visit, column, raw string) string {
	if p.policy == PolicyNull {
		v.Missing = append(v.Missing, column)
		return ""
	}
	return fmt.Sprintf("invalid %s %q", column, raw)
}
