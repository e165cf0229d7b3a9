package domain

import "time"

// Authorize succeeds only when caller is the tenant's authority.
func Authorize(caller Address, tenant Tenant) error {
	if caller == "" || caller != tenant.Authority {
		return ErrNotAuthorized
	}
	return nil
}

// IsActive applies the derived subscription policy: a tenant whose paid
// period has lapsed is inactive whatever its stored status says.
func IsActive(tenant Tenant, now time.Time, period time.Duration) bool {
	if tenant.Status != StatusActive {
		return false
	}
	return !tenant.Expired(now, period)
}
