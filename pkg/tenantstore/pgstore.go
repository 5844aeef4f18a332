package tenantstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roamingbanjara/urgency-timer/pkg/pg"
	"github.com/roamingbanjara/urgency-timer/pkg/quota"
)

// tenantColumns is the column list every tenant query returns, in Scan order.
const tenantColumns = `tenant_key, access_token, view_count, is_paid, plan, COALESCE(subscription_id, ''), created_at, updated_at`

const settingsColumns = `tenant_key, timer_color, timer_position, timer_template, font_size, updated_at`

// PGStore implements Store on a PostgreSQL connection pool. Every mutation is
// a single statement, so correctness under concurrency comes from the
// database's row-level atomicity and the product_views primary key, not from
// any in-process coordination.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given pool.
// Panics on a nil pool to fail fast during wiring.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("tenantstore: pgx pool is required")
	}
	return &PGStore{pool: pool}
}

// UpsertTenant creates the tenant or refreshes its access token. The conflict
// clause touches only the token column, so re-authorization never resets
// counters or billing state.
func (s *PGStore) UpsertTenant(ctx context.Context, tenantKey, accessToken string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenants (tenant_key, access_token)
		VALUES ($1, $2)
		ON CONFLICT (tenant_key) DO UPDATE
		SET access_token = EXCLUDED.access_token, updated_at = now()
		RETURNING `+tenantColumns,
		tenantKey, accessToken)

	return scanTenant(row)
}

func (s *PGStore) GetTenant(ctx context.Context, tenantKey string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE tenant_key = $1`,
		tenantKey)

	return scanTenant(row)
}

// IncrementViewCount adds one to the counter in a single UPDATE, so concurrent
// callers for the same tenant can never lose an update.
func (s *PGStore) IncrementViewCount(ctx context.Context, tenantKey string) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tenants
		SET view_count = view_count + 1, updated_at = now()
		WHERE tenant_key = $1
		RETURNING `+tenantColumns,
		tenantKey)

	return scanTenant(row)
}

// InsertViewRecordOnce relies on the product_views primary key plus
// ON CONFLICT DO NOTHING: of N concurrent calls with the same key, exactly
// one inserts a row and reports created=true.
func (s *PGStore) InsertViewRecordOnce(ctx context.Context, tenantKey, productID, sessionID string) (bool, error) {
	if tenantKey == "" {
		return false, ErrEmptyTenantKey
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO product_views (tenant_key, product_id, session_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		tenantKey, productID, sessionID)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateSubscription(ctx context.Context, tenantKey, subscriptionID string, plan quota.Plan, isPaid bool) (*Tenant, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}
	if isPaid && (plan == quota.PlanNone || !plan.Valid()) {
		return nil, ErrInvalidPlan
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tenants
		SET subscription_id = NULLIF($2, ''), plan = $3, is_paid = $4, updated_at = now()
		WHERE tenant_key = $1
		RETURNING `+tenantColumns,
		tenantKey, subscriptionID, string(plan), isPaid)

	return scanTenant(row)
}

func (s *PGStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Tenant, error) {
	if subscriptionID == "" {
		return nil, ErrTenantNotFound
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subscription_id = $1`,
		subscriptionID)

	return scanTenant(row)
}

// GetOrCreateSettings inserts the default row on first access. The no-op
// DO UPDATE makes RETURNING yield the existing row too, so the whole
// get-or-create is one round trip with no re-entrant race.
func (s *PGStore) GetOrCreateSettings(ctx context.Context, tenantKey string) (*Settings, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenant_settings (tenant_key, timer_color, timer_position, timer_template, font_size)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_key) DO UPDATE SET tenant_key = EXCLUDED.tenant_key
		RETURNING `+settingsColumns,
		tenantKey, DefaultTimerColor, DefaultTimerPosition, DefaultTimerTemplate, DefaultFontSize)

	return scanSettings(row)
}

// UpdateSettings upserts the row, filling untouched fields from the current
// values (or the defaults when the row did not exist yet).
func (s *PGStore) UpdateSettings(ctx context.Context, tenantKey string, patch SettingsPatch) (*Settings, error) {
	if tenantKey == "" {
		return nil, ErrEmptyTenantKey
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenant_settings (tenant_key, timer_color, timer_position, timer_template, font_size)
		VALUES ($1, COALESCE($2, $6), COALESCE($3, $7), COALESCE($4, $8), COALESCE($5, $9))
		ON CONFLICT (tenant_key) DO UPDATE SET
			timer_color = COALESCE($2, tenant_settings.timer_color),
			timer_position = COALESCE($3, tenant_settings.timer_position),
			timer_template = COALESCE($4, tenant_settings.timer_template),
			font_size = COALESCE($5, tenant_settings.font_size),
			updated_at = now()
		RETURNING `+settingsColumns,
		tenantKey,
		patch.TimerColor, patch.TimerPosition, patch.TimerTemplate, patch.FontSize,
		DefaultTimerColor, DefaultTimerPosition, DefaultTimerTemplate, DefaultFontSize)

	return scanSettings(row)
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	var plan string
	err := row.Scan(&t.TenantKey, &t.AccessToken, &t.ViewCount, &t.IsPaid, &plan, &t.SubscriptionID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	t.Plan = quota.Plan(plan)
	return &t, nil
}

func scanSettings(row pgx.Row) (*Settings, error) {
	var st Settings
	err := row.Scan(&st.TenantKey, &st.TimerColor, &st.TimerPosition, &st.TimerTemplate, &st.FontSize, &st.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSettingsNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &st, nil
}
