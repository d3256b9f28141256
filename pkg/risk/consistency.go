package risk

import "github.com/synaptica-ai/vitals/pkg/common/models"

type consistencyKey struct {
	band     models.RiskBand
	highRisk bool
}

// consistencyTable is total over band x prediction. The Medium rows are
// explicit neutral entries.
var consistencyTable = map[consistencyKey]models.Consistency{
	{models.BandLow, false}: {
		Flag:    models.ConsistencyAligned,
		Message: "Health score and model agree on low risk. Keep up the good habits.",
	},
	{models.BandHigh, true}: {
		Flag:    models.ConsistencyConfirmedRisk,
		Message: "Low health score and elevated predicted risk. Consult a physician urgently.",
	},
	{models.BandLow, true}: {
		Flag:    models.ConsistencyMismatchHighScoreRisk,
		Message: "Good health score but the model predicts elevated risk. Schedule a checkup.",
	},
	{models.BandHigh, false}: {
		Flag:    models.ConsistencyMismatchLowScoreLow,
		Message: "Low health score although predicted risk is low. Work on improving daily habits.",
	},
	{models.BandMedium, false}: {Flag: models.ConsistencyNeutral},
	{models.BandMedium, true}:  {Flag: models.ConsistencyNeutral},
}

var unavailableConsistency = models.Consistency{
	Flag:    models.ConsistencyUnavailable,
	Message: "Model prediction unavailable; showing health-score assessment only.",
}

// Reconcile looks up the consistency message for a band and a prediction.
func Reconcile(band models.RiskBand, prediction models.ModelPrediction) models.Consistency {
	if !prediction.Available() {
		return unavailableConsistency
	}
	if c, ok := consistencyTable[consistencyKey{band: band, highRisk: prediction.HighRisk}]; ok {
		return c
	}
	return models.Consistency{Flag: models.ConsistencyNeutral}
}
