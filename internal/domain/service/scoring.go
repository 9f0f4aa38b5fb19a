package service

import (
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/pkg/constants"
)

// ScoreSet is the normalized output of the scoring engine. Every category in
// the standard set is always present so downstream consumers never branch on
// missing keys.
type ScoreSet struct {
	Overall    float64
	Categories map[string]float64
}

// utilizationBand maps a utilization threshold to a posture score. Bands are
// evaluated in declaration order; the first match wins.
type utilizationBand struct {
	above float64
	score float64
}

var utilizationBands = []utilizationBand{
	{above: 80, score: 85},
	{above: 60, score: 75},
	{above: 40, score: 65},
	{above: -1, score: 50},
}

// neutralScore is assumed when no data source is available. The assessment is
// marked limited-data in that case; the number itself claims no confidence.
const neutralScore = 50

// ComputeScores turns the available raw reports into a 0-100 overall score
// plus a complete per-category vector. Either report may be nil. The function
// is pure: identical inputs always yield identical outputs.
//
// When finer-grained signals are absent, category scores are derived from the
// overall score with small fixed offsets. The offsets approximate plausible
// category variance without fabricating precision; they are a documented
// approximation, not a measurement.
func ComputeScores(license *models.LicenseReport, secure *models.SecureScoreReport) ScoreSet {
	var overall float64
	switch {
	case secure != nil:
		overall = clamp(secure.Percentage)
	case license != nil:
		overall = utilizationScore(license.UtilizationRate)
	default:
		overall = neutralScore
	}

	categories := map[string]float64{
		string(constants.CategorySecureScore): overall,
		string(constants.CategoryLicense):     overall,
	}
	if license != nil {
		categories[string(constants.CategoryLicense)] = utilizationScore(license.UtilizationRate)
	}

	if secure != nil {
		categories[string(constants.CategoryIdentity)] = clamp(secure.Percentage + 5)
	} else {
		categories[string(constants.CategoryIdentity)] = min(clamp(overall+5), 90)
	}
	categories[string(constants.CategoryDataProtection)] = clamp(overall - 5)
	categories[string(constants.CategoryCloudApps)] = clamp(overall - 2)

	return ScoreSet{Overall: overall, Categories: categories}
}

// utilizationScore resolves the stepped utilization function via the band table.
func utilizationScore(rate float64) float64 {
	for _, band := range utilizationBands {
		if rate > band.above {
			return band.score
		}
	}
	return neutralScore
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
