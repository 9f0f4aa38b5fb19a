package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudsentry/posture/pkg/constants"
)

// Assessment is one point-in-time posture evaluation of a customer.
type Assessment struct {
	// ID is a time+random composite identifier.
	ID string `json:"id" gorm:"primaryKey;column:id"`

	CustomerID string `json:"customer_id" gorm:"column:customer_id;index"`
	TenantID   string `json:"tenant_id" gorm:"column:tenant_id;index"`

	// Name is an optional operator-supplied label.
	Name string `json:"name,omitempty" gorm:"column:name"`

	AssessmentDate time.Time                  `json:"assessment_date" gorm:"column:assessment_date;index"`
	Status         constants.AssessmentStatus `json:"status" gorm:"column:status"`

	// Categories is the requested category subset for this run.
	Categories CategoryList `json:"categories" gorm:"column:categories;type:text"`

	// Metrics holds scores, raw source snapshots, and recommendations.
	Metrics AssessmentMetrics `json:"metrics" gorm:"column:metrics;type:text"`

	LastModified time.Time `json:"last_modified" gorm:"column:last_modified"`
}

// TableName overrides the gorm table name.
func (Assessment) TableName() string { return "assessments" }

// AssessmentMetrics aggregates everything derived during one run.
type AssessmentMetrics struct {
	OverallScore   float64            `json:"overall_score"`
	CategoryScores map[string]float64 `json:"category_scores"`

	// DataCollected is true iff at least one directory API fetch succeeded.
	DataCollected bool `json:"data_collected"`

	LicenseReport    *LicenseReport     `json:"license_report,omitempty"`
	SecureScore      *SecureScoreReport `json:"secure_score,omitempty"`
	Recommendations  []string           `json:"recommendations"`
	DataIssue        *DataIssue         `json:"data_issue,omitempty"`
}

// DataIssue is the diagnostic embedded when every fetch failed despite valid
// credentials; it keeps a degraded record inspectable instead of discarded.
type DataIssue struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

// Value implements driver.Valuer, serializing metrics as JSON text.
func (m AssessmentMetrics) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *AssessmentMetrics) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// CategoryList stores the requested categories as a JSON text column.
type CategoryList []constants.AssessmentCategory

// Value implements driver.Valuer.
func (l CategoryList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CategoryList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Contains reports whether the list names the given category.
func (l CategoryList) Contains(c constants.AssessmentCategory) bool {
	for _, v := range l {
		if v == c {
			return true
		}
	}
	return false
}

// AssessmentHistory is an immutable, append-only trend record. Rows are never
// mutated or deleted by this service.
type AssessmentHistory struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	AssessmentID string    `json:"assessment_id" gorm:"column:assessment_id;index"`
	TenantID     string    `json:"tenant_id" gorm:"column:tenant_id;index"`
	CustomerID   string    `json:"customer_id" gorm:"column:customer_id;index"`
	Date         time.Time `json:"date" gorm:"column:date;index"`

	OverallScore   float64  `json:"overall_score" gorm:"column:overall_score"`
	CategoryScores ScoreMap `json:"category_scores" gorm:"column:category_scores;type:text"`
}

// TableName overrides the gorm table name.
func (AssessmentHistory) TableName() string { return "assessment_history" }

// ScoreMap stores category scores as a JSON text column.
type ScoreMap map[string]float64

// Value implements driver.Valuer.
func (m ScoreMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *ScoreMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
