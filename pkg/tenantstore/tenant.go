package tenantstore

import (
	"time"

	"github.com/roamingbanjara/urgency-timer/pkg/quota"
)

// Tenant is one storefront using the widget, keyed by its storefront domain.
// ViewCount is monotonically non-decreasing; all mutation goes through
// single-row atomic statements in the store.
type Tenant struct {
	TenantKey      string
	AccessToken    string
	ViewCount      int64
	IsPaid         bool
	Plan           quota.Plan
	SubscriptionID string // empty until the first billing activation
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Settings holds the tenant-configured widget display options. The metering
// engine passes them through opaquely; only the widget interprets them.
type Settings struct {
	TenantKey     string
	TimerColor    string
	TimerPosition string
	TimerTemplate int
	FontSize      int
	UpdatedAt     time.Time
}

// Display defaults applied on first settings access. They match what the
// widget script falls back to when a field is missing.
const (
	DefaultTimerColor    = "#FF0000"
	DefaultTimerPosition = "top"
	DefaultTimerTemplate = 1
	DefaultFontSize      = 16
)

// DefaultSettings returns the settings a tenant starts with.
func DefaultSettings(tenantKey string) Settings {
	return Settings{
		TenantKey:     tenantKey,
		TimerColor:    DefaultTimerColor,
		TimerPosition: DefaultTimerPosition,
		TimerTemplate: DefaultTimerTemplate,
		FontSize:      DefaultFontSize,
	}
}

// SettingsPatch is a partial settings update. Nil fields keep their current value.
type SettingsPatch struct {
	TimerColor    *string
	TimerPosition *string
	TimerTemplate *int
	FontSize      *int
}
