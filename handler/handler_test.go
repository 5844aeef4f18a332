package handler_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamingbanjara/urgency-timer/handler"
	"github.com/roamingbanjara/urgency-timer/pkg/billing"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
	"github.com/roamingbanjara/urgency-timer/pkg/viewcache"
	"github.com/roamingbanjara/urgency-timer/pkg/views"
)

const (
	testShop   = "shop.example.com"
	testSecret = "hush"
)

func newTestServer(t *testing.T) (*httptest.Server, *tenantstore.MemoryStore, *viewcache.MemoryCache) {
	t.Helper()

	store := tenantstore.NewMemoryStore()
	cache := viewcache.NewInMemory(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	_, err := store.UpsertTenant(context.Background(), testShop, "token")
	require.NoError(t, err)

	h := handler.New(
		views.New(store, cache),
		billing.NewReconciler(store),
		store,
		handler.WithWebhookSecret(testSecret),
		handler.WithViewerCounter(cache),
		handler.WithSessionTracker(cache),
	)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, store, cache
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRegisterViewEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      testShop,
		"productId": "prod-1",
		"sessionId": "sess-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["registered"])
	assert.Equal(t, false, body["duplicate"])

	// Replay of the same view is a duplicate.
	resp = postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      testShop,
		"productId": "prod-1",
		"sessionId": "sess-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decode[map[string]any](t, resp)
	assert.Equal(t, false, body["registered"])
	assert.Equal(t, true, body["duplicate"])
}

func TestRegisterViewMintsSession(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      testShop,
		"productId": "prod-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["registered"])
	assert.NotEmpty(t, body["sessionId"], "a minted session id must be returned to the widget")
}

func TestRegisterViewBadRequest(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"productId": "prod-1",
		"sessionId": "sess-1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterViewUnknownShop(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      "nobody.example.com",
		"productId": "prod-1",
		"sessionId": "sess-1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)

	for range 999 {
		_, err := store.IncrementViewCount(context.Background(), testShop)
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/api/status?shop=" + testShop)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["locked"])
	assert.Equal(t, true, body["warning"])
	assert.Equal(t, float64(999), body["viewsUsed"])
	assert.Equal(t, float64(1000), body["totalViews"])

	settings, ok := body["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, tenantstore.DefaultTimerColor, settings["timer_color"])
}

func TestStatusUnknownShopDefault(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status?shop=unseen.example.com")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["locked"])
	assert.Equal(t, float64(0), body["viewsUsed"])
	assert.Equal(t, float64(1000), body["totalViews"])
	assert.Equal(t, false, body["isPaid"])
}

func TestStatusRequiresShop(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/register-view", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSettingsEndpoints(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/dashboard/settings?shop=" + testShop)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	settings := decode[map[string]any](t, resp)
	assert.Equal(t, tenantstore.DefaultTimerColor, settings["timer_color"])

	resp = postJSON(t, srv.URL+"/api/dashboard/settings", map[string]any{
		"shop":        testShop,
		"timer_color": "#00A86B",
		"font_size":   20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	settings = decode[map[string]any](t, resp)
	assert.Equal(t, "#00A86B", settings["timer_color"])
	assert.Equal(t, float64(20), settings["font_size"])
	assert.Equal(t, tenantstore.DefaultTimerPosition, settings["timer_position"])
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, url string, body []byte, signature string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Platform-Hmac-Sha256", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSubscriptionWebhook(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)

	body, err := json.Marshal(map[string]any{
		"shop":            testShop,
		"subscription_id": "sub_1",
		"status":          "ACTIVE",
		"price":           49,
	})
	require.NoError(t, err)

	resp := postWebhook(t, srv.URL+"/api/webhooks/subscription-update", body, signBody(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[map[string]any](t, resp)
	assert.Equal(t, "growth", result["plan"])
	assert.Equal(t, true, result["isPaid"])

	tenant, err := store.GetTenant(context.Background(), testShop)
	require.NoError(t, err)
	assert.True(t, tenant.IsPaid)
}

func TestSubscriptionWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)

	body := []byte(`{"shop":"` + testShop + `","subscription_id":"sub_1","status":"ACTIVE","price":99}`)

	resp := postWebhook(t, srv.URL+"/api/webhooks/subscription-update", body, "bogus")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postWebhook(t, srv.URL+"/api/webhooks/subscription-update", body, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tenant, err := store.GetTenant(context.Background(), testShop)
	require.NoError(t, err)
	assert.False(t, tenant.IsPaid, "an unverified event must not change billing state")
}

func TestSubscriptionWebhookUnknownSubscriptionAcked(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	body, err := json.Marshal(map[string]any{
		"subscription_id": "sub_ghost",
		"status":          "ACTIVE",
		"price":           49,
	})
	require.NoError(t, err)

	resp := postWebhook(t, srv.URL+"/api/webhooks/subscription-update", body, signBody(body))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "unresolvable events are acknowledged, not retried forever")
}

func TestUninstallWebhook(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)

	body := []byte(`{"shop":"` + testShop + `"}`)
	resp := postWebhook(t, srv.URL+"/api/webhooks/app-uninstalled", body, signBody(body))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Counters survive uninstall so a reinstall cannot reset usage.
	_, err := store.GetTenant(context.Background(), testShop)
	require.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterViewMarksSessionAndViewers(t *testing.T) {
	t.Parallel()

	srv, _, cache := newTestServer(t)
	ctx := context.Background()

	resp := postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      testShop,
		"productId": "prod-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	sessionID, _ := body["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	// The minted session is attributed to the shop.
	shop, err := cache.Session(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, testShop, shop)

	viewers, err := cache.ActiveViewers(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewers)

	// A duplicate refreshes the session marker but adds no viewer.
	resp = postJSON(t, srv.URL+"/api/register-view", map[string]string{
		"shop":      testShop,
		"productId": "prod-1",
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	viewers, err = cache.ActiveViewers(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewers)
}

func TestStatusReportsActiveViewers(t *testing.T) {
	t.Parallel()

	srv, _, cache := newTestServer(t)
	ctx := context.Background()

	for range 3 {
		_, err := cache.IncrementActiveViewers(ctx, "prod-9")
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/api/status?shop=" + testShop + "&productId=prod-9")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, float64(3), body["activeViewers"])

	// Without a productId the field is omitted.
	resp, err = http.Get(srv.URL + "/api/status?shop=" + testShop)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decode[map[string]any](t, resp)
	assert.NotContains(t, body, "activeViewers")
}
