package models

// LicenseReport is the license/seat utilization snapshot fetched from the
// directory API. It is embedded in assessment metrics, not persisted on its own.
type LicenseReport struct {
	TotalLicenses    int             `json:"total_licenses"`
	AssignedLicenses int             `json:"assigned_licenses"`
	UtilizationRate  float64         `json:"utilization_rate"`
	LicenseDetails   []LicenseDetail `json:"license_details"`
}

// LicenseDetail carries per-SKU seat counts.
type LicenseDetail struct {
	SKUPartNumber string `json:"sku_part_number"`
	SKUID         string `json:"sku_id"`
	Total         int    `json:"total"`
	Assigned      int    `json:"assigned"`
}

// ComputeUtilization derives the utilization percentage. Zero total licenses
// yields zero, not a division error.
func (r *LicenseReport) ComputeUtilization() {
	if r.TotalLicenses <= 0 {
		r.UtilizationRate = 0
		return
	}
	r.UtilizationRate = float64(r.AssignedLicenses) / float64(r.TotalLicenses) * 100
}

// SecureScoreReport is the secure-score snapshot fetched from the directory API.
type SecureScoreReport struct {
	CurrentScore  float64        `json:"current_score"`
	MaxScore      float64        `json:"max_score"`
	Percentage    float64        `json:"percentage"`
	ControlScores []ControlScore `json:"control_scores"`
}

// ControlScore is one security control's implementation state.
type ControlScore struct {
	Category             string `json:"category"`
	ControlName          string `json:"control_name"`
	ImplementationStatus string `json:"implementation_status"`
}

// ComputePercentage derives the secure-score percentage, guarding a zero max.
func (r *SecureScoreReport) ComputePercentage() {
	if r.MaxScore <= 0 {
		r.Percentage = 0
		return
	}
	r.Percentage = r.CurrentScore / r.MaxScore * 100
}
