// Package quota contains the pure free-tier policy for the view metering
// engine: the lock/warning decision derived from a tenant's view counter and
// paid flag, and the price-to-plan ladder used by billing reconciliation.
//
// The package performs no I/O and holds no state. Decisions are computed fresh
// on every call so they can never go stale relative to the durable counters.
//
// # Usage
//
//	d := quota.Evaluate(tenant.ViewCount, tenant.IsPaid)
//	if d.Locked {
//	    // free allowance exhausted, hide the widget
//	}
//
// The boundary is inclusive-locked: a free tenant with exactly
// quota.FreeViewLimit counted views is locked.
package quota
