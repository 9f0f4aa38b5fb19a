package utils

import (
	"regexp"
	"strings"

	"github.com/cloudsentry/posture/pkg/errors"
)

// tenantDomainPattern matches the dotted-label domain form accepted for
// tenant lookups, e.g. "contoso.onmicrosoft.com".
var tenantDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidateTenantDomain checks the syntactic shape of a tenant domain.
func ValidateTenantDomain(domain string) *errors.AppError {
	domain = strings.TrimSpace(domain)
	if domain == "" || len(domain) > 253 || !tenantDomainPattern.MatchString(domain) {
		return errors.ErrInvalidDomainFormat(domain)
	}
	return nil
}

// ClampLimit normalizes a client-supplied list limit into [1, max], applying
// def when the client supplied none.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
