package tenantstore

import "errors"

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrSettingsNotFound = errors.New("tenant settings not found")
	ErrEmptyTenantKey   = errors.New("tenant key is required")
	ErrInvalidPlan      = errors.New("invalid plan for paid tenant")

	// ErrStoreUnavailable wraps transport and query failures against the
	// durable store. The registration path surfaces it to the caller as a
	// transient error; the caller owns any retry.
	ErrStoreUnavailable = errors.New("tenant store unavailable")
)
