package quota

const (
	// FreeViewLimit is the number of product views included in the free tier.
	// The view at exactly this count is already over the allowance: a tenant
	// with view_count == FreeViewLimit and no paid plan is locked.
	FreeViewLimit int64 = 1000

	// WarningWindow is how many views before the lock the warning flag turns on.
	WarningWindow int64 = 100
)

// Decision is the derived lock/unlock state for a tenant. It is computed fresh
// from the tenant counters on every call and is never persisted.
type Decision struct {
	Locked         bool
	ViewsRemaining int64
	Warning        bool
}

// Evaluate maps a raw view counter and the paid flag to a Decision.
// Negative counters are treated as zero. Paid tenants are never locked.
func Evaluate(viewCount int64, isPaid bool) Decision {
	if viewCount < 0 {
		viewCount = 0
	}

	locked := viewCount >= FreeViewLimit && !isPaid
	remaining := FreeViewLimit - viewCount
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Locked:         locked,
		ViewsRemaining: remaining,
		Warning:        !locked && FreeViewLimit-viewCount <= WarningWindow,
	}
}
