package dto

// RegisterCustomerRequest registers a client organization. ClientSecret is
// consumed once, handed to the secret store, and never persisted or echoed.
type RegisterCustomerRequest struct {
	TenantID           string   `json:"tenantId"`
	TenantDomain       string   `json:"tenantDomain"`
	TenantName         string   `json:"tenantName"`
	ContactEmail       string   `json:"contactEmail,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	ApplicationID      string   `json:"applicationId"`
	ClientID           string   `json:"clientId"`
	ServicePrincipalID string   `json:"servicePrincipalId,omitempty"`
	ClientSecret       string   `json:"clientSecret"`
	GrantedPermissions []string `json:"grantedPermissions,omitempty"`
}

// UpdateCustomerRequest patches mutable customer fields; nil leaves a field
// untouched.
type UpdateCustomerRequest struct {
	TenantName   *string `json:"tenantName,omitempty"`
	ContactEmail *string `json:"contactEmail,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// CustomerQuery filters customer listings.
type CustomerQuery struct {
	Status string
	Limit  int
	Offset int
}
