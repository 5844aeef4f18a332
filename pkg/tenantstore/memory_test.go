package tenantstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
)

func TestMemoryStoreUpsertTenant(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	created, err := store.UpsertTenant(ctx, "shop.example.com", "token-1")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", created.TenantKey)
	assert.Equal(t, "token-1", created.AccessToken)
	assert.Zero(t, created.ViewCount)
	assert.Equal(t, quota.PlanNone, created.Plan)
	assert.False(t, created.IsPaid)

	// Accumulate some state, then re-authorize.
	_, err = store.IncrementViewCount(ctx, "shop.example.com")
	require.NoError(t, err)
	_, err = store.UpdateSubscription(ctx, "shop.example.com", "sub_1", quota.PlanGrowth, true)
	require.NoError(t, err)

	again, err := store.UpsertTenant(ctx, "shop.example.com", "token-2")
	require.NoError(t, err)
	assert.Equal(t, "token-2", again.AccessToken, "token must be refreshed")
	assert.Equal(t, int64(1), again.ViewCount, "counter must survive re-authorization")
	assert.Equal(t, quota.PlanGrowth, again.Plan, "plan must survive re-authorization")
	assert.True(t, again.IsPaid)
	assert.Equal(t, "sub_1", again.SubscriptionID)
}

func TestMemoryStoreUpsertTenantEmptyKey(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	_, err := store.UpsertTenant(context.Background(), "", "token")
	require.ErrorIs(t, err, tenantstore.ErrEmptyTenantKey)
}

func TestMemoryStoreGetTenantNotFound(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	_, err := store.GetTenant(context.Background(), "unknown.example.com")
	require.ErrorIs(t, err, tenantstore.ErrTenantNotFound)
}

func TestMemoryStoreIncrementViewCountConcurrent(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertTenant(ctx, "shop.example.com", "token")
	require.NoError(t, err)

	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			_, err := store.IncrementViewCount(ctx, "shop.example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tenant, err := store.GetTenant(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), tenant.ViewCount, "no increment may be lost")
}

func TestMemoryStoreInsertViewRecordOnce(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	created, err := store.InsertViewRecordOnce(ctx, "shop.example.com", "prod-1", "sess-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertViewRecordOnce(ctx, "shop.example.com", "prod-1", "sess-1")
	require.NoError(t, err)
	assert.False(t, created, "the record already exists")

	// Any component of the composite key makes it a new record.
	created, err = store.InsertViewRecordOnce(ctx, "shop.example.com", "prod-2", "sess-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertViewRecordOnce(ctx, "other.example.com", "prod-1", "sess-1")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryStoreInsertViewRecordOnceConcurrent(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	const goroutines = 50

	var created atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			ok, err := store.InsertViewRecordOnce(ctx, "shop.example.com", "prod-1", "sess-1")
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load(), "exactly one insert may win")
}

func TestMemoryStoreUpdateSubscription(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertTenant(ctx, "shop.example.com", "token")
	require.NoError(t, err)

	// Applying the same update twice yields the same end state.
	for range 2 {
		tenant, err := store.UpdateSubscription(ctx, "shop.example.com", "sub_1", quota.PlanGrowth, true)
		require.NoError(t, err)
		assert.Equal(t, "sub_1", tenant.SubscriptionID)
		assert.Equal(t, quota.PlanGrowth, tenant.Plan)
		assert.True(t, tenant.IsPaid)
	}
}

func TestMemoryStoreUpdateSubscriptionInvalidPlan(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertTenant(ctx, "shop.example.com", "token")
	require.NoError(t, err)

	_, err = store.UpdateSubscription(ctx, "shop.example.com", "sub_1", quota.PlanNone, true)
	require.ErrorIs(t, err, tenantstore.ErrInvalidPlan)

	_, err = store.UpdateSubscription(ctx, "shop.example.com", "sub_1", quota.Plan("bogus"), true)
	require.ErrorIs(t, err, tenantstore.ErrInvalidPlan)
}

func TestMemoryStoreFindBySubscriptionID(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertTenant(ctx, "shop.example.com", "token")
	require.NoError(t, err)
	_, err = store.UpdateSubscription(ctx, "shop.example.com", "sub_42", quota.PlanUnlimited, true)
	require.NoError(t, err)

	tenant, err := store.FindBySubscriptionID(ctx, "sub_42")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", tenant.TenantKey)

	_, err = store.FindBySubscriptionID(ctx, "sub_missing")
	require.ErrorIs(t, err, tenantstore.ErrTenantNotFound)

	_, err = store.FindBySubscriptionID(ctx, "")
	require.ErrorIs(t, err, tenantstore.ErrTenantNotFound)
}

func TestMemoryStoreSettings(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	settings, err := store.GetOrCreateSettings(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, tenantstore.DefaultTimerColor, settings.TimerColor)
	assert.Equal(t, tenantstore.DefaultTimerPosition, settings.TimerPosition)
	assert.Equal(t, tenantstore.DefaultTimerTemplate, settings.TimerTemplate)
	assert.Equal(t, tenantstore.DefaultFontSize, settings.FontSize)

	color := "#00A86B"
	size := 20
	updated, err := store.UpdateSettings(ctx, "shop.example.com", tenantstore.SettingsPatch{
		TimerColor: &color,
		FontSize:   &size,
	})
	require.NoError(t, err)
	assert.Equal(t, "#00A86B", updated.TimerColor)
	assert.Equal(t, 20, updated.FontSize)
	assert.Equal(t, tenantstore.DefaultTimerPosition, updated.TimerPosition, "untouched fields keep their value")

	// A second read returns the stored row, not the defaults.
	again, err := store.GetOrCreateSettings(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "#00A86B", again.TimerColor)
}

func TestMemoryStoreUpdateSettingsCreatesRow(t *testing.T) {
	t.Parallel()

	store := tenantstore.NewMemoryStore()
	ctx := context.Background()

	position := "floating"
	settings, err := store.UpdateSettings(ctx, "fresh.example.com", tenantstore.SettingsPatch{
		TimerPosition: &position,
	})
	require.NoError(t, err)
	assert.Equal(t, "floating", settings.TimerPosition)
	assert.Equal(t, tenantstore.DefaultTimerColor, settings.TimerColor, "missing fields fall back to defaults")
}
