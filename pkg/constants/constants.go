// Package constants defines system-wide constants for the posture assessment service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Customer Status Constants
// ================================================================================

// CustomerStatus represents the lifecycle status of a customer organization.
type CustomerStatus string

const (
	// CustomerStatusActive indicates the customer is under active assessment.
	CustomerStatusActive CustomerStatus = "active"

	// CustomerStatusInactive indicates the customer is registered but paused.
	CustomerStatusInactive CustomerStatus = "inactive"

	// CustomerStatusPending indicates the registration flow has not completed.
	CustomerStatusPending CustomerStatus = "pending"

	// CustomerStatusDeleted indicates the customer has been soft-deleted.
	CustomerStatusDeleted CustomerStatus = "deleted"
)

// ================================================================================
// Assessment Status Constants
// ================================================================================

// AssessmentStatus represents the outcome classification of an assessment run.
type AssessmentStatus string

const (
	// AssessmentStatusCompleted indicates every requested data source was fetched.
	AssessmentStatusCompleted AssessmentStatus = "completed"

	// AssessmentStatusCompletedLimited indicates at least one data source was
	// unavailable and the assessment was scored on partial data.
	AssessmentStatusCompletedLimited AssessmentStatus = "completed-limited-data"

	// AssessmentStatusIncomplete indicates the run was interrupted before scoring.
	AssessmentStatusIncomplete AssessmentStatus = "incomplete"

	// AssessmentStatusFailed indicates the run could not produce a usable record.
	AssessmentStatusFailed AssessmentStatus = "failed"
)

// ================================================================================
// Assessment Category Constants
// ================================================================================

// AssessmentCategory identifies an independently requestable assessment area.
type AssessmentCategory string

const (
	CategoryLicense        AssessmentCategory = "license"
	CategorySecureScore    AssessmentCategory = "secureScore"
	CategoryIdentity       AssessmentCategory = "identity"
	CategoryDataProtection AssessmentCategory = "dataProtection"
	CategoryCloudApps      AssessmentCategory = "cloudApps"
)

// DefaultCategories is the category set used when a request names none.
var DefaultCategories = []AssessmentCategory{CategoryLicense, CategorySecureScore}

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	ContextKeyRequestID  ContextKey = "request_id"
	ContextKeyTenantID   ContextKey = "tenant_id"
	ContextKeyCustomerID ContextKey = "customer_id"
)

// ================================================================================
// Cache Keys and TTLs
// ================================================================================

const (
	// CacheKeyCustomerList caches the customer list endpoint response.
	CacheKeyCustomerList = "customers:list"

	// CacheKeyHistoryPrefix prefixes per-tenant assessment history cache entries.
	CacheKeyHistoryPrefix = "history:"

	// CacheKeyMetricsPrefix prefixes per-tenant latest-metrics cache entries.
	CacheKeyMetricsPrefix = "metrics:"
)

const (
	// DefaultCacheTTL bounds staleness of hot list endpoints.
	DefaultCacheTTL = 60 * time.Second

	// DefaultGraphTimeout bounds each directory API call.
	DefaultGraphTimeout = 30 * time.Second
)

// ================================================================================
// Query Limits
// ================================================================================

const (
	// DefaultListLimit is applied when a list request carries no limit.
	DefaultListLimit = 50

	// MaxListLimit caps any client-supplied list limit.
	MaxListLimit = 100
)
