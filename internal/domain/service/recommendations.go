package service

import (
	"strings"

	"github.com/cloudsentry/posture/internal/domain/models"
)

// Recommendation message catalogue. Kept as constants so handler adapters and
// tests refer to one canonical wording.
const (
	RecLowUtilization = "License utilization is below 40%. Review unassigned seats to reduce licensing spend."
	RecModerateUtilization = "License utilization is between 40% and 70%. Monitor seat assignment as the organization grows."
	RecHighUtilization = "License utilization is above 90%. Plan additional capacity before onboarding new users."

	RecPremiumSKUAdoption = "Premium license tiers are present. Verify advanced security features are actually enabled and adopted."
	RecEntrySKUUpgrade = "Entry-tier licenses detected. Consider upgrading key users to plans with stronger security controls."

	RecSecureScoreUrgent = "Secure score is below 50%. Immediate remediation of failing security controls is recommended."
	RecSecureScoreModerate = "Secure score is between 50% and 70%. Address the highest-impact improvement actions next."
	RecSecureScorePositive = "Secure score is at or above 80%. Keep monitoring to maintain the current security posture."

	RecIdentityHardening = "Identity protection controls (MFA or conditional access) are not implemented. Prioritize identity hardening."

	RecCompleteSetup = "No directory data could be collected. Complete the app registration and grant the required permissions."
)

var premiumSKUMarkers = []string{"E5", "PREMIUM", "P2"}
var entrySKUMarkers = []string{"BASIC", "E1", "F1", "F3"}

// GenerateRecommendations inspects license utilization and secure-score
// controls and emits a prioritized recommendation list. Rules fire
// independently and in declaration order; duplicates across rule groups are
// accepted behavior, not de-duplicated. Either report may be nil.
func GenerateRecommendations(license *models.LicenseReport, secure *models.SecureScoreReport) []string {
	recs := make([]string, 0, 4)

	if license != nil {
		switch {
		case license.UtilizationRate < 40:
			recs = append(recs, RecLowUtilization)
		case license.UtilizationRate <= 70:
			recs = append(recs, RecModerateUtilization)
		}
		if license.UtilizationRate > 90 {
			recs = append(recs, RecHighUtilization)
		}

		if hasSKUMarker(license.LicenseDetails, premiumSKUMarkers) {
			recs = append(recs, RecPremiumSKUAdoption)
		}
		if hasSKUMarker(license.LicenseDetails, entrySKUMarkers) {
			recs = append(recs, RecEntrySKUUpgrade)
		}
	}

	if secure != nil {
		switch {
		case secure.Percentage < 50:
			recs = append(recs, RecSecureScoreUrgent)
		case secure.Percentage <= 70:
			recs = append(recs, RecSecureScoreModerate)
		case secure.Percentage >= 80:
			recs = append(recs, RecSecureScorePositive)
		}

		if hasUnimplementedIdentityControl(secure.ControlScores) {
			recs = append(recs, RecIdentityHardening)
		}
	}

	if license == nil && secure == nil {
		recs = append(recs, RecCompleteSetup)
	}

	return recs
}

func hasSKUMarker(details []models.LicenseDetail, markers []string) bool {
	for _, d := range details {
		sku := strings.ToUpper(d.SKUPartNumber)
		for _, m := range markers {
			if strings.Contains(sku, m) {
				return true
			}
		}
	}
	return false
}

var identityControlMarkers = []string{"identity", "mfa", "conditional access", "conditionalaccess"}

func hasUnimplementedIdentityControl(controls []models.ControlScore) bool {
	for _, c := range controls {
		if !strings.EqualFold(c.ImplementationStatus, "Not Implemented") {
			continue
		}
		haystack := strings.ToLower(c.Category + " " + c.ControlName)
		for _, m := range identityControlMarkers {
			if strings.Contains(haystack, m) {
				return true
			}
		}
	}
	return false
}
