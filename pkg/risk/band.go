package risk

import "github.com/synaptica-ai/vitals/pkg/common/models"

const (
	ColorGreen = "green"
	ColorAmber = "amber"
	ColorRed   = "red"
)

// BandFor derives the risk band from a health score. It is the only source
// of truth for risk level; stored levels are never consulted.
func (t Thresholds) BandFor(score float64) models.RiskBand {
	switch {
	case score >= t.LowRiskMinScore:
		return models.BandLow
	case score >= t.MediumRiskMinScore:
		return models.BandMedium
	default:
		return models.BandHigh
	}
}

func BandColor(band models.RiskBand) string {
	switch band {
	case models.BandLow:
		return ColorGreen
	case models.BandMedium:
		return ColorAmber
	default:
		return ColorRed
	}
}
