// Package utils provides small shared helpers for the posture assessment service.
package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewAssessmentID generates a time-prefixed composite identifier. The prefix
// keeps identifiers roughly sortable by creation time; the uuid suffix makes
// them collision-safe under concurrent runs.
func NewAssessmentID(now time.Time) string {
	return fmt.Sprintf("asmt-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// NewCustomerID generates an opaque customer identifier.
func NewCustomerID() string {
	return "cust-" + uuid.NewString()
}

// NewHistoryID generates an identifier for an assessment history row.
func NewHistoryID() string {
	return "hist-" + uuid.NewString()
}
