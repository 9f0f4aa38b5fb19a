package repository

import (
	"context"

	"github.com/cloudsentry/posture/internal/domain/models"
)

// AssessmentFilter narrows assessment and history list queries.
type AssessmentFilter struct {
	CustomerID string
	TenantID   string
	Limit      int
	Offset     int
}

// AssessmentRepository persists assessments and their append-only history.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)

	// Update replaces the mutable portion of an existing assessment
	// (status, metrics, last_modified). History rows are never touched.
	Update(ctx context.Context, assessment *models.Assessment) error

	// FindAll returns assessments most recent first.
	FindAll(ctx context.Context, filter AssessmentFilter) ([]*models.Assessment, error)

	// FindLatestByTenant returns the most recent assessment for a tenant, or
	// a not-found error when the tenant has none.
	FindLatestByTenant(ctx context.Context, tenantID string) (*models.Assessment, error)

	// AppendHistory inserts one immutable history row.
	AppendHistory(ctx context.Context, entry *models.AssessmentHistory) error

	// PersistRun writes the assessment (create or update) and its history row
	// as one atomic unit; either both land or neither does.
	PersistRun(ctx context.Context, assessment *models.Assessment, entry *models.AssessmentHistory, update bool) error

	// FindHistory returns history rows most recent first.
	FindHistory(ctx context.Context, filter AssessmentFilter) ([]*models.AssessmentHistory, error)
}
