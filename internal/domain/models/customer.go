// Package models defines the domain models for the posture assessment service.
package models

import (
	"time"

	"github.com/cloudsentry/posture/pkg/constants"
)

// Customer represents a client organization whose directory/security posture
// is assessed. Each customer owns an app credential reference used to read
// its directory tenant; the raw client secret is held in the secret store and
// never persisted here.
type Customer struct {
	// ID is the opaque customer identifier.
	ID string `json:"id" gorm:"primaryKey;column:id"`

	// TenantID is the external directory identifier of the customer's tenant.
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index"`

	// TenantDomain is the primary domain of the tenant.
	TenantDomain string `json:"tenant_domain" gorm:"column:tenant_domain;index"`

	// TenantName is the display name of the customer organization.
	TenantName string `json:"tenant_name" gorm:"column:tenant_name"`

	// ContactEmail is the operator-facing contact address.
	ContactEmail string `json:"contact_email" gorm:"column:contact_email"`

	// Notes carries free-form operator notes.
	Notes string `json:"notes" gorm:"column:notes"`

	// Status is the customer lifecycle status.
	Status constants.CustomerStatus `json:"status" gorm:"column:status;index"`

	// Credentials is the embedded app registration reference.
	Credentials AppCredentialRef `json:"credentials" gorm:"embedded;embeddedPrefix:cred_"`

	// CreatedDate is when the customer was registered.
	CreatedDate time.Time `json:"created_date" gorm:"column:created_date"`

	// LastAssessmentDate is when the most recent assessment was persisted.
	LastAssessmentDate *time.Time `json:"last_assessment_date,omitempty" gorm:"column:last_assessment_date"`

	// TotalAssessments counts persisted assessments; monotonically non-decreasing.
	TotalAssessments int `json:"total_assessments" gorm:"column:total_assessments"`
}

// TableName overrides the gorm table name.
func (Customer) TableName() string { return "customers" }

// AppCredentialRef references a tenant app registration. SecretRef points into
// the secret store; the raw secret never appears after registration.
type AppCredentialRef struct {
	ApplicationID      string `json:"application_id" gorm:"column:application_id"`
	ClientID           string `json:"client_id" gorm:"column:client_id"`
	ServicePrincipalID string `json:"service_principal_id" gorm:"column:service_principal_id"`
	SecretRef          string `json:"secret_ref" gorm:"column:secret_ref"`

	// GrantedPermissions is a comma-separated set of granted directory permissions.
	GrantedPermissions string `json:"granted_permissions" gorm:"column:granted_permissions"`
}

// Usable reports whether the reference is complete enough to enter the
// real-data scoring path.
func (c *AppCredentialRef) Usable() bool {
	return c.ClientID != "" && c.SecretRef != ""
}

// CanAssess reports whether an assessment run may resolve this customer with
// real directory data.
func (c *Customer) CanAssess() bool {
	return c.Status != constants.CustomerStatusDeleted && c.Credentials.Usable()
}

// RecordAssessment bumps the assessment projection fields after a successful
// persist. The assessment row itself is the record of truth.
func (c *Customer) RecordAssessment(at time.Time) {
	c.LastAssessmentDate = &at
	c.TotalAssessments++
}
