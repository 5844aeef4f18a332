package tenantstore

import (
	"context"
	"sync"
	"time"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
)

// MemoryStore is an in-process Store used in tests and local development.
// A single mutex stands in for the database's row-level atomicity; the
// semantics of every method match the PostgreSQL implementation exactly.
type MemoryStore struct {
	mu       sync.Mutex
	tenants  map[string]*Tenant
	views    map[viewKey]struct{}
	settings map[string]*Settings
}

type viewKey struct {
	tenantKey string
	productID string
	sessionID string
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[string]*Tenant),
		views:    make(map[viewKey]struct{}),
		settings: make(map[string]*Settings),
	}
}

func (s *MemoryStore) UpsertTenant(ctx context.Context, tenantKey, accessToken string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t, exists := s.tenants[tenantKey]
	if !exists {
		t = &Tenant{
			TenantKey: tenantKey,
			Plan:      quota.PlanNone,
			CreatedAt: now,
		}
		s.tenants[tenantKey] = t
	}
	t.AccessToken = accessToken
	t.UpdatedAt = now

	return copyTenant(t), nil
}

func (s *MemoryStore) GetTenant(ctx context.Context, tenantKey string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[tenantKey]
	if !exists {
		return nil, ErrTenantNotFound
	}
	return copyTenant(t), nil
}

func (s *MemoryStore) IncrementViewCount(ctx context.Context, tenantKey string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[tenantKey]
	if !exists {
		return nil, ErrTenantNotFound
	}
	t.ViewCount++
	t.UpdatedAt = time.Now().UTC()

	return copyTenant(t), nil
}

func (s *MemoryStore) InsertViewRecordOnce(ctx context.Context, tenantKey, productID, sessionID string) (bool, error) {
	if tenantKey == "" {
		return false, ErrEmptyTenantKey
	}

	key := viewKey{tenantKey: tenantKey, productID: productID, sessionID: sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.views[key]; exists {
		return false, nil
	}
	s.views[key] = struct{}{}
	return true, nil
}

func (s *MemoryStore) UpdateSubscription(ctx context.Context, tenantKey, subscriptionID string, plan quota.Plan, isPaid bool) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}
	if isPaid && (plan == quota.PlanNone || !plan.Valid()) {
		return nil, ErrInvalidPlan
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tenants[tenantKey]
	if !exists {
		return nil, ErrTenantNotFound
	}
	t.SubscriptionID = subscriptionID
	t.Plan = plan
	t.IsPaid = isPaid
	t.UpdatedAt = time.Now().UTC()

	return copyTenant(t), nil
}

func (s *MemoryStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Tenant, error) {
	if subscriptionID == "" {
		return nil, ErrTenantNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.SubscriptionID == subscriptionID {
			return copyTenant(t), nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemoryStore) GetOrCreateSettings(ctx context.Context, tenantKey string) (*Settings, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.settings[tenantKey]
	if !exists {
		defaults := DefaultSettings(tenantKey)
		defaults.UpdatedAt = time.Now().UTC()
		st = &defaults
		s.settings[tenantKey] = st
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) UpdateSettings(ctx context.Context, tenantKey string, patch SettingsPatch) (*Settings, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.settings[tenantKey]
	if !exists {
		defaults := DefaultSettings(tenantKey)
		st = &defaults
		s.settings[tenantKey] = st
	}
	if patch.TimerColor != nil {
		st.TimerColor = *patch.TimerColor
	}
	if patch.TimerPosition != nil {
		st.TimerPosition = *patch.TimerPosition
	}
	if patch.TimerTemplate != nil {
		st.TimerTemplate = *patch.TimerTemplate
	}
	if patch.FontSize != nil {
		st.FontSize = *patch.FontSize
	}
	st.UpdatedAt = time.Now().UTC()

	cp := *st
	return &cp, nil
}

func copyTenant(t *Tenant) *Tenant {
	cp := *t
	return &cp
}
