package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
)

type settingsPayload struct {
	TimerColor    string `json:"timer_color"`
	TimerPosition string `json:"timer_position"`
	TimerTemplate int    `json:"timer_template"`
	FontSize      int    `json:"font_size"`
}

func toSettingsPayload(s tenantstore.Settings) settingsPayload {
	return settingsPayload{
		TimerColor:    s.TimerColor,
		TimerPosition: s.TimerPosition,
		TimerTemplate: s.TimerTemplate,
		FontSize:      s.FontSize,
	}
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "shop parameter required")
		return
	}

	settings, err := h.store.GetOrCreateSettings(r.Context(), shop)
	if err != nil {
		h.log.ErrorContext(r.Context(), "settings fetch failed",
			slog.String("shop", shop), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to fetch settings")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsPayload(*settings))
}

type updateSettingsRequest struct {
	Shop          string  `json:"shop"`
	TimerColor    *string `json:"timer_color"`
	TimerPosition *string `json:"timer_position"`
	TimerTemplate *int    `json:"timer_template"`
	FontSize      *int    `json:"font_size"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Shop == "" {
		writeError(w, http.StatusBadRequest, "shop parameter required")
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), req.Shop, tenantstore.SettingsPatch{
		TimerColor:    req.TimerColor,
		TimerPosition: req.TimerPosition,
		TimerTemplate: req.TimerTemplate,
		FontSize:      req.FontSize,
	})
	if err != nil {
		if errors.Is(err, tenantstore.ErrEmptyTenantKey) {
			writeError(w, http.StatusBadRequest, "shop parameter required")
			return
		}
		h.log.ErrorContext(r.Context(), "settings update failed",
			slog.String("shop", req.Shop), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to update settings")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsPayload(*settings))
}
