package dto

import (
	"time"

	"github.com/cloudsentry/posture/internal/domain/models"
)

// CreateAssessmentRequest starts a new assessment run for a customer.
type CreateAssessmentRequest struct {
	CustomerID         string   `json:"customerId"`
	IncludedCategories []string `json:"includedCategories,omitempty"`
	AssessmentName     string   `json:"assessmentName,omitempty"`
	NotificationEmail  string   `json:"notificationEmail,omitempty"`
	AutoSchedule       bool     `json:"autoSchedule,omitempty"`
	ScheduleFrequency  string   `json:"scheduleFrequency,omitempty"`
}

// SaveAssessmentRequest upserts an assessment: with ID and CustomerID set the
// existing row is re-scored and updated in place, otherwise a new run is
// created. Either way one history row is appended.
type SaveAssessmentRequest struct {
	ID                 string   `json:"id,omitempty"`
	CustomerID         string   `json:"customerId"`
	IncludedCategories []string `json:"includedCategories,omitempty"`
	AssessmentName     string   `json:"assessmentName,omitempty"`
}

// AssessmentResult is returned from create/save runs.
type AssessmentResult struct {
	Assessment *models.Assessment `json:"assessment"`

	// RealData reports whether at least one directory fetch succeeded.
	RealData bool `json:"realData"`
}

// HistoryQuery filters history listings.
type HistoryQuery struct {
	TenantID   string
	CustomerID string
	Limit      int
}

// MetricsResponse is the latest-metrics payload for a tenant. When no
// assessment exists yet, NoAssessment is true and every score is zero so
// consumers never branch on missing keys.
type MetricsResponse struct {
	TenantID        string             `json:"tenantId"`
	AssessmentID    string             `json:"assessmentId,omitempty"`
	AssessmentDate  *time.Time         `json:"assessmentDate,omitempty"`
	OverallScore    float64            `json:"overallScore"`
	CategoryScores  map[string]float64 `json:"categoryScores"`
	DataCollected   bool               `json:"dataCollected"`
	Recommendations []string           `json:"recommendations"`
	NoAssessment    bool               `json:"noAssessment,omitempty"`
}
