package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/roamingbanjara/urgency-timer/pkg/billing"
)

// hmacHeader carries the base64 HMAC-SHA256 digest of the raw request body,
// as sent by the host commerce platform.
const hmacHeader = "X-Platform-Hmac-Sha256"

// maxWebhookBody bounds webhook payloads; billing events are tiny.
const maxWebhookBody = 1 << 20

// verifyWebhook authenticates webhook deliveries before any handler runs.
// The digest is compared in constant time. A missing secret rejects
// everything rather than accepting everything.
func (h *Handler) verifyWebhook(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.webhookSecret == "" {
			writeError(w, http.StatusUnauthorized, "webhook verification not configured")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}

		mac := hmac.New(sha256.New, []byte(h.webhookSecret))
		mac.Write(body)
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(r.Header.Get(hmacHeader))) {
			h.log.WarnContext(r.Context(), "webhook signature mismatch",
				slog.String("path", r.URL.Path))
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

type subscriptionUpdateRequest struct {
	Shop           string  `json:"shop"`
	SubscriptionID string  `json:"subscription_id"`
	Status         string  `json:"status"`
	Price          float64 `json:"price"`
}

func (h *Handler) subscriptionUpdate(w http.ResponseWriter, r *http.Request) {
	var req subscriptionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant, err := h.reconciler.ApplySubscriptionEvent(r.Context(), billing.SubscriptionEvent{
		TenantKey:      req.Shop,
		SubscriptionID: req.SubscriptionID,
		Status:         billing.SubscriptionStatus(req.Status),
		PriceAmount:    req.Price,
	})
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "subscription_id is required")
		return
	case errors.Is(err, billing.ErrUnresolvedTenant):
		// Acknowledge so the platform stops retrying an event we can never
		// resolve; the subscription belongs to no known tenant.
		h.log.WarnContext(r.Context(), "subscription event for unknown tenant",
			slog.String("subscription_id", req.SubscriptionID))
		w.WriteHeader(http.StatusOK)
		return
	default:
		h.log.ErrorContext(r.Context(), "subscription reconciliation failed",
			slog.String("subscription_id", req.SubscriptionID), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to apply update")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shop":   tenant.TenantKey,
		"plan":   string(tenant.Plan),
		"isPaid": tenant.IsPaid,
	})
}

type appUninstalledRequest struct {
	Shop string `json:"shop"`
}

func (h *Handler) appUninstalled(w http.ResponseWriter, r *http.Request) {
	var req appUninstalledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Tenant rows are kept on uninstall; counters must survive a reinstall.
	h.log.InfoContext(r.Context(), "app uninstalled", slog.String("shop", req.Shop))
	w.WriteHeader(http.StatusOK)
}
