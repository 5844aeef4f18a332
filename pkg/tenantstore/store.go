package tenantstore

import (
	"context"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
)

// Store is the durable source of truth for tenant counters, billing flags and
// widget settings. Implementations must make every mutation a single atomic
// row operation; callers never coordinate with application-level locks.
type Store interface {
	// UpsertTenant creates a tenant on first authorization or refreshes its
	// access token on re-authorization. It must never touch counters or
	// billing columns for an existing tenant.
	UpsertTenant(ctx context.Context, tenantKey, accessToken string) (*Tenant, error)

	// GetTenant returns the tenant or ErrTenantNotFound.
	GetTenant(ctx context.Context, tenantKey string) (*Tenant, error)

	// IncrementViewCount atomically adds one to the tenant's view counter and
	// returns the updated row. Concurrent callers must all be reflected.
	IncrementViewCount(ctx context.Context, tenantKey string) (*Tenant, error)

	// InsertViewRecordOnce records that a session viewed a product. It returns
	// true only when this call created the record. The uniqueness guarantee
	// must come from a storage-level constraint, not a check-then-insert.
	InsertViewRecordOnce(ctx context.Context, tenantKey, productID, sessionID string) (bool, error)

	// UpdateSubscription sets the billing fields. Applying the same update
	// twice yields the same end state.
	UpdateSubscription(ctx context.Context, tenantKey, subscriptionID string, plan quota.Plan, isPaid bool) (*Tenant, error)

	// FindBySubscriptionID resolves a tenant from an external subscription
	// identifier, for billing events that carry no tenant key.
	// Returns ErrTenantNotFound when no tenant holds that subscription.
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Tenant, error)

	// GetOrCreateSettings returns the tenant's widget settings, inserting the
	// defaults atomically on first access. A single round trip; two
	// first-time callers must both get the default row.
	GetOrCreateSettings(ctx context.Context, tenantKey string) (*Settings, error)

	// UpdateSettings applies a partial settings update and returns the result.
	UpdateSettings(ctx context.Context, tenantKey string, patch SettingsPatch) (*Settings, error)
}
