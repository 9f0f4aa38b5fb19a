// Package service holds the pure domain services and the outbound ports they
// and the application layer depend on.
package service

import (
	"context"

	"github.com/cloudsentry/posture/internal/domain/models"
)

// DirectoryClient reads posture data from the external directory/security API.
// The two fetches are independent: a failure of one must never prevent the
// other from being attempted or used. Implementations perform no retries;
// retry policy belongs to the orchestrator.
type DirectoryClient interface {
	FetchLicenseReport(ctx context.Context, tenantID, clientID, clientSecret string) (*models.LicenseReport, error)
	FetchSecureScore(ctx context.Context, tenantID, clientID, clientSecret string) (*models.SecureScoreReport, error)
}

// SecretStore holds per-customer client secrets. Only the returned reference
// is persisted with the customer record.
type SecretStore interface {
	Store(ctx context.Context, customerID, secret string) (ref string, err error)
	Resolve(ctx context.Context, ref string) (secret string, err error)
	Delete(ctx context.Context, ref string) error
}

// AuditPublisher emits assessment lifecycle events to the audit stream.
// Implementations must be safe to call when no stream is configured.
type AuditPublisher interface {
	AssessmentCompleted(ctx context.Context, event AssessmentEvent)
	Close() error
}

// AssessmentEvent is the payload published when an assessment is persisted.
type AssessmentEvent struct {
	AssessmentID string  `json:"assessment_id"`
	CustomerID   string  `json:"customer_id"`
	TenantID     string  `json:"tenant_id"`
	Status       string  `json:"status"`
	OverallScore float64 `json:"overall_score"`
	RealData     bool    `json:"real_data"`
}
