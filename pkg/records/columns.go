package records

import (
	"strings"

	"github.com/synaptica-ai/vitals/pkg/common/models"
)

// aliases maps a squashed header (lower case, no spaces, underscores or dashes)
// to its canonical column.
var aliases = map[string]string{
	"patient":        models.ColPatientID,
	"patientid":      models.ColPatientID,
	"date":           models.ColDate,
	"visitdate":      models.ColDate,
	"heightcm":       models.ColHeightCm,
	"height":         models.ColHeightCm,
	"weightkg":       models.ColWeightKg,
	"weight":         models.ColWeightKg,
	"bmi":            models.ColBMI,
	"systolicbp":     models.ColSystolicBP,
	"systolic":       models.ColSystolicBP,
	"diastolicbp":    models.ColDiastolicBP,
	"diastolic":      models.ColDiastolicBP,
	"heartrate":      models.ColHeartRate,
	"smokingstatus":  models.ColSmokingStatus,
	"smoking":        models.ColSmokingStatus,
	"diabetes":       models.ColDiabetes,
	"hyperlipidemia": models.ColHyperlipidemia,
	"healthscore":    models.ColHealthScore,
	"risklevel":      models.ColRiskLevel,
	"heartdisease":   models.ColHeartDisease,
	"age":            models.ColAge,
	"gender":         models.ColGender,
	"sex":            models.ColGender,
}

var requiredColumns = []string{
	models.ColPatientID,
	models.ColDate,
	models.ColHeightCm,
	models.ColWeightKg,
	models.ColSystolicBP,
	models.ColDiastolicBP,
	models.ColHeartRate,
	models.ColSmokingStatus,
	models.ColDiabetes,
	models.ColHyperlipidemia,
	models.ColHealthScore,
}

// CanonicalColumn returns the canonical name for a raw header, or "" when the
// header is not part of the schema.
func CanonicalColumn(header string) string {
	squashed := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t', '\ufeff':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(header)))
	return aliases[squashed]
}

// columnIndex maps canonical columns to their position in the header row. The
// first occurrence of a canonical column wins.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := CanonicalColumn(h)
		if name == "" {
			continue
		}
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func missingColumns(idx map[string]int) []string {
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
