package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
	"github.com/roamingbanjara/urgency-timer/pkg/viewcache"
)

// Result reports the outcome of a view registration.
type Result struct {
	Registered bool // this call counted the view
	Duplicate  bool // the (session, product) pair was already counted
}

// Status is the widget-facing tenant state: the quota decision plus the
// display settings, computed fresh on every call.
type Status struct {
	Locked         bool
	Warning        bool
	ViewsUsed      int64
	ViewsRemaining int64
	TotalViews     int64 // the free-tier allowance, for display
	IsPaid         bool
	Plan           quota.Plan
	Settings       tenantstore.Settings
}

// Service orchestrates the dedup cache, the durable store and the quota
// policy for incoming product views. All dependencies are injected; the
// service holds no global state.
type Service struct {
	store tenantstore.Store
	cache viewcache.Cache
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for absorbed cache failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Service. The store is required; the cache may be nil, in
// which case every registration goes straight to the durable store.
func New(store tenantstore.Store, cache viewcache.Cache, opts ...Option) *Service {
	if store == nil {
		panic("views: tenant store is required")
	}
	s := &Service{
		store: store,
		cache: cache,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterView counts a product view at most once per (tenant, product,
// session). The cache is a fast-path hint only: on a cache error the call
// falls through to the durable insert, whose uniqueness constraint is the
// real dedup guarantee. Durable failures surface as ErrTransientStore and are
// never retried here, so an increment with a lost acknowledgment cannot be
// applied twice by this service.
func (s *Service) RegisterView(ctx context.Context, tenantKey, productID, sessionID string) (Result, error) {
	if tenantKey == "" || productID == "" || sessionID == "" {
		return Result{}, fmt.Errorf("%w: tenant key, product id and session id are required", ErrInvalidRequest)
	}

	if s.cache != nil {
		already, err := s.cache.CheckAndMark(ctx, sessionID, productID)
		if err != nil {
			// Fail open: dedup still holds at the store.
			s.log.WarnContext(ctx, "view dedup cache unavailable, falling through to store",
				slog.String("tenant", tenantKey), slog.Any("error", err))
		} else if already {
			return Result{Duplicate: true}, nil
		}
	}

	created, err := s.store.InsertViewRecordOnce(ctx, tenantKey, productID, sessionID)
	if err != nil {
		return Result{}, errors.Join(ErrTransientStore, err)
	}
	if !created {
		// Concurrent registration or an expired cache marker.
		return Result{Duplicate: true}, nil
	}

	if _, err := s.store.IncrementViewCount(ctx, tenantKey); err != nil {
		if errors.Is(err, tenantstore.ErrTenantNotFound) {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantKey)
		}
		return Result{}, errors.Join(ErrTransientStore, err)
	}

	return Result{Registered: true}, nil
}

// GetStatus returns the current quota decision and display settings for a
// tenant. An unknown tenant is not an error: new storefronts get the
// unlocked zero-usage default so they are never locked out.
func (s *Service) GetStatus(ctx context.Context, tenantKey string) (Status, error) {
	if tenantKey == "" {
		return Status{}, fmt.Errorf("%w: tenant key is required", ErrInvalidRequest)
	}

	tenant, err := s.store.GetTenant(ctx, tenantKey)
	if err != nil {
		if errors.Is(err, tenantstore.ErrTenantNotFound) {
			return Status{
				ViewsRemaining: quota.FreeViewLimit,
				TotalViews:     quota.FreeViewLimit,
				Plan:           quota.PlanNone,
				Settings:       tenantstore.DefaultSettings(tenantKey),
			}, nil
		}
		return Status{}, errors.Join(ErrTransientStore, err)
	}

	settings, err := s.store.GetOrCreateSettings(ctx, tenantKey)
	if err != nil {
		return Status{}, errors.Join(ErrTransientStore, err)
	}

	decision := quota.Evaluate(tenant.ViewCount, tenant.IsPaid)

	return Status{
		Locked:         decision.Locked,
		Warning:        decision.Warning,
		ViewsUsed:      tenant.ViewCount,
		ViewsRemaining: decision.ViewsRemaining,
		TotalViews:     quota.FreeViewLimit,
		IsPaid:         tenant.IsPaid,
		Plan:           tenant.Plan,
		Settings:       *settings,
	}, nil
}
