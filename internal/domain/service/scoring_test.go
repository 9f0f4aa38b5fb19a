package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/pkg/constants"
)

func TestComputeScores_SecureScoreDrivesOverall(t *testing.T) {
	secure := &models.SecureScoreReport{CurrentScore: 30, MaxScore: 100}
	secure.ComputePercentage()

	scores := ComputeScores(nil, secure)

	assert.Equal(t, 30.0, scores.Overall)
	assert.Equal(t, 30.0, scores.Categories[string(constants.CategorySecureScore)])
	assert.Equal(t, 35.0, scores.Categories[string(constants.CategoryIdentity)])
	assert.Equal(t, 25.0, scores.Categories[string(constants.CategoryDataProtection)])
	assert.Equal(t, 28.0, scores.Categories[string(constants.CategoryCloudApps)])
}

func TestComputeScores_SecureScorePreferredOverLicense(t *testing.T) {
	license := &models.LicenseReport{TotalLicenses: 100, AssignedLicenses: 90}
	license.ComputeUtilization()
	secure := &models.SecureScoreReport{Percentage: 42}

	scores := ComputeScores(license, secure)

	assert.Equal(t, 42.0, scores.Overall)
	// The license category still reflects utilization, not the overall.
	assert.Equal(t, 85.0, scores.Categories[string(constants.CategoryLicense)])
}

func TestComputeScores_UtilizationBands(t *testing.T) {
	cases := []struct {
		rate float64
		want float64
	}{
		{rate: 95, want: 85},
		{rate: 80.1, want: 85},
		{rate: 80, want: 75}, // boundary belongs to the lower band
		{rate: 65, want: 75},
		{rate: 60, want: 65},
		{rate: 45, want: 65},
		{rate: 40, want: 50},
		{rate: 10, want: 50},
		{rate: 0, want: 50},
	}
	for _, tc := range cases {
		license := &models.LicenseReport{UtilizationRate: tc.rate}
		scores := ComputeScores(license, nil)
		assert.Equalf(t, tc.want, scores.Overall, "utilization %.1f", tc.rate)
	}
}

func TestComputeScores_NoDataIsNeutral(t *testing.T) {
	scores := ComputeScores(nil, nil)

	assert.Equal(t, 50.0, scores.Overall)
	assert.Equal(t, 55.0, scores.Categories[string(constants.CategoryIdentity)])
	assert.Equal(t, 45.0, scores.Categories[string(constants.CategoryDataProtection)])
	assert.Equal(t, 48.0, scores.Categories[string(constants.CategoryCloudApps)])
}

func TestComputeScores_Clamping(t *testing.T) {
	high := &models.SecureScoreReport{Percentage: 150}
	scores := ComputeScores(nil, high)
	assert.Equal(t, 100.0, scores.Overall)
	assert.Equal(t, 100.0, scores.Categories[string(constants.CategoryIdentity)])

	low := &models.SecureScoreReport{Percentage: 0}
	scores = ComputeScores(nil, low)
	assert.Equal(t, 0.0, scores.Overall)
	assert.Equal(t, 0.0, scores.Categories[string(constants.CategoryDataProtection)])
}

func TestComputeScores_IdentityCappedWithoutSecureScore(t *testing.T) {
	// High utilization alone never pushes the identity estimate past 90.
	license := &models.LicenseReport{UtilizationRate: 95}
	scores := ComputeScores(license, nil)

	assert.Equal(t, 85.0, scores.Overall)
	assert.Equal(t, 90.0, scores.Categories[string(constants.CategoryIdentity)])
}

func TestComputeScores_EveryCategoryAlwaysPresent(t *testing.T) {
	scores := ComputeScores(nil, nil)
	for _, c := range []constants.AssessmentCategory{
		constants.CategoryLicense,
		constants.CategorySecureScore,
		constants.CategoryIdentity,
		constants.CategoryDataProtection,
		constants.CategoryCloudApps,
	} {
		_, ok := scores.Categories[string(c)]
		assert.Truef(t, ok, "category %s missing", c)
	}
}

func TestComputeScores_Pure(t *testing.T) {
	license := &models.LicenseReport{TotalLicenses: 50, AssignedLicenses: 23}
	license.ComputeUtilization()
	secure := &models.SecureScoreReport{CurrentScore: 44, MaxScore: 80}
	secure.ComputePercentage()

	first := ComputeScores(license, secure)
	second := ComputeScores(license, secure)

	require.Equal(t, first.Overall, second.Overall)
	require.Equal(t, first.Categories, second.Categories)
}

func TestComputeUtilization_ZeroTotal(t *testing.T) {
	report := &models.LicenseReport{TotalLicenses: 0, AssignedLicenses: 10}
	report.ComputeUtilization()
	assert.Equal(t, 0.0, report.UtilizationRate)
}
