// Package repository defines the persistence ports of the domain layer.
package repository

import (
	"context"
	"time"

	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/pkg/constants"
)

// CustomerFilter narrows customer list queries.
type CustomerFilter struct {
	Status constants.CustomerStatus
	Limit  int
	Offset int
}

// CustomerPatch carries the mutable customer fields for partial updates.
// Nil pointers leave the stored value untouched.
type CustomerPatch struct {
	TenantName   *string
	ContactEmail *string
	Notes        *string
	Status       *constants.CustomerStatus
}

// CustomerRepository persists customer records.
type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id string) (*models.Customer, error)
	FindByDomain(ctx context.Context, domain string) (*models.Customer, error)
	FindAll(ctx context.Context, filter CustomerFilter) ([]*models.Customer, error)
	Update(ctx context.Context, id string, patch CustomerPatch) error

	// RecordAssessment bumps last_assessment_date and total_assessments by
	// exactly one for the given customer.
	RecordAssessment(ctx context.Context, id string, at time.Time) error

	// Delete removes the row. Soft deletion goes through Update with a
	// deleted status; this is the hard variant.
	Delete(ctx context.Context, id string) error
}
