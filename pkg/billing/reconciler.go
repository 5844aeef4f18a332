package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
)

// SubscriptionStatus is the lifecycle state reported by the host commerce
// platform for an app subscription. Values arrive verbatim from billing
// events; only StatusActive grants paid access.
type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "PENDING"
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusDeclined  SubscriptionStatus = "DECLINED"
	StatusExpired   SubscriptionStatus = "EXPIRED"
	StatusFrozen    SubscriptionStatus = "FROZEN"
	StatusCancelled SubscriptionStatus = "CANCELLED"
)

// SubscriptionEvent is one billing lifecycle notification. TenantKey may be
// empty when the source only carries the subscription identifier; the
// reconciler then resolves the tenant through the store's subscription index.
type SubscriptionEvent struct {
	TenantKey      string
	SubscriptionID string
	Status         SubscriptionStatus
	PriceAmount    float64 // monthly price in whole currency units
}

// Reconciler applies subscription lifecycle changes to tenant billing state.
// Events are delivered at least once; every path is idempotent, so replays
// converge on the same tenant row.
type Reconciler struct {
	store tenantstore.Store
	log   *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger for reconciliation decisions.
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReconciler returns a Reconciler. Panics on a nil store to fail fast
// during wiring.
func NewReconciler(store tenantstore.Store, opts ...Option) *Reconciler {
	if store == nil {
		panic("billing: tenant store is required")
	}
	r := &Reconciler{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplySubscriptionUpdate reconciles one subscription state change for a
// known tenant. Only ACTIVE grants paid access, with the plan derived from
// the charged price. CANCELLED and EXPIRED revoke it. Every other status
// leaves the tenant untouched and returns its current row.
func (r *Reconciler) ApplySubscriptionUpdate(ctx context.Context, tenantKey, subscriptionID string, status SubscriptionStatus, priceAmount float64) (*tenantstore.Tenant, error) {
	if tenantKey == "" || subscriptionID == "" {
		return nil, fmt.Errorf("%w: tenant key and subscription id are required", ErrInvalidEvent)
	}

	switch status {
	case StatusActive:
		plan := quota.PlanFromPrice(priceAmount)
		tenant, err := r.store.UpdateSubscription(ctx, tenantKey, subscriptionID, plan, true)
		if err != nil {
			return nil, r.wrapStoreErr(err)
		}
		r.log.InfoContext(ctx, "subscription activated",
			slog.String("tenant", tenantKey),
			slog.String("subscription_id", subscriptionID),
			slog.String("plan", string(plan)))
		return tenant, nil

	case StatusCancelled, StatusExpired:
		// The subscription id is kept so replayed or out-of-order events for
		// it still resolve to this tenant.
		tenant, err := r.store.UpdateSubscription(ctx, tenantKey, subscriptionID, quota.PlanNone, false)
		if err != nil {
			return nil, r.wrapStoreErr(err)
		}
		r.log.InfoContext(ctx, "subscription revoked",
			slog.String("tenant", tenantKey),
			slog.String("subscription_id", subscriptionID),
			slog.String("status", string(status)))
		return tenant, nil

	default:
		tenant, err := r.store.GetTenant(ctx, tenantKey)
		if err != nil {
			return nil, r.wrapStoreErr(err)
		}
		r.log.InfoContext(ctx, "subscription status ignored",
			slog.String("tenant", tenantKey),
			slog.String("status", string(status)))
		return tenant, nil
	}
}

// ApplySubscriptionEvent is the webhook-shaped entry point. When the event
// carries no tenant key it is resolved through the subscription-ID index
// rather than parsed out of opaque identifiers.
func (r *Reconciler) ApplySubscriptionEvent(ctx context.Context, event SubscriptionEvent) (*tenantstore.Tenant, error) {
	if event.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription id is required", ErrInvalidEvent)
	}

	tenantKey := event.TenantKey
	if tenantKey == "" {
		tenant, err := r.store.FindBySubscriptionID(ctx, event.SubscriptionID)
		if err != nil {
			if errors.Is(err, tenantstore.ErrTenantNotFound) {
				return nil, fmt.Errorf("%w: subscription %s", ErrUnresolvedTenant, event.SubscriptionID)
			}
			return nil, r.wrapStoreErr(err)
		}
		tenantKey = tenant.TenantKey
	}

	return r.ApplySubscriptionUpdate(ctx, tenantKey, event.SubscriptionID, event.Status, event.PriceAmount)
}

func (r *Reconciler) wrapStoreErr(err error) error {
	if errors.Is(err, tenantstore.ErrTenantNotFound) {
		// An event for a tenant we have never seen; callers acknowledge
		// rather than retry.
		return errors.Join(ErrUnresolvedTenant, err)
	}
	return errors.Join(ErrReconciliationFailed, err)
}
